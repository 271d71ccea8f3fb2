package core

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.23", 1.23, true},
		{"1,23", 1.23, true},
		{"-7.5", -7.5, true},
		{"+2", 2, true},
		{"0", 0, true},
		{" 2.50 ", 2.5, true},
		{"0.1", 0.1, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1,2,3", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.IsError(t, err, ErrInvalidAmount, tc.in)
			continue
		}
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.out, got, tc.in)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-03-15", "2024-03-15", true},
		{"2024-03-15T23:59:59Z", "2024-03-15", true},
		{"2024-03-15T23:59:59-05:00", "2024-03-15", true},
		{"2024-03-15T08:00:00", "2024-03-15", true},
		{"2024-13-01", "", false},
		{"15/03/2024", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if !tc.ok {
			assert.Error(t, err, tc.in)
			continue
		}
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, d.String())
	}

	d := NewDate(2024, 3, 15)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, 3, int(d.Month()))
	assert.Equal(t, 15, d.Day())
}
