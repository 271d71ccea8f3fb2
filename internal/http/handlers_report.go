package http

import "net/http"

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	totals, err := s.service.CategoryTotals(r.Context())
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(totals).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Summary(r.Context())
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) handleMonthlyBalance(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r)
	if err != nil {
		BadRequestError("Invalid year: " + err.Error() + ".").Write(w)
		return
	}
	month, err := parseMonth(r)
	if err != nil {
		BadRequestError("Invalid month: " + err.Error() + ".").Write(w)
		return
	}

	balance, err := s.service.MonthlyBalance(r.Context(), year, month)
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(balance).Write(w)
}

func (s *Server) handleYearlyTrend(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r)
	if err != nil {
		BadRequestError("Invalid year: " + err.Error() + ".").Write(w)
		return
	}

	trend, err := s.service.YearlyTrend(r.Context(), year)
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(trend).Write(w)
}
