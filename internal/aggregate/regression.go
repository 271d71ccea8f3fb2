package aggregate

import "tracker/internal/core"

// Line is y = Intercept + Slope*x.
type Line struct {
	Slope     float64
	Intercept float64
}

// At evaluates the line at x.
func (l Line) At(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// Points evaluates the line at x = 0..n-1.
func (l Line) Points(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = l.At(float64(i))
	}
	return out
}

// Regression fits ys against x = 0..len(ys)-1 by ordinary least squares.
//
//	slope     = (n·Σxy − Σx·Σy) / (n·Σx² − (Σx)²)
//	intercept = (Σy − slope·Σx) / n
//
// A zero denominator (fewer than two points) returns core.ErrDegenerateInput.
func Regression(ys []float64) (Line, error) {
	n := float64(len(ys))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return Line{}, core.ErrDegenerateInput
	}

	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n
	return Line{Slope: slope, Intercept: intercept}, nil
}
