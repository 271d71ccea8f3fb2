package http

import (
	"errors"
	"net/http"
	"strings"

	"tracker/internal/core"
)

const welcomeMessage = "Welcome to the Expense Tracker API"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(welcomeMessage))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.service.Snapshot(r.Context())
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large.").Write(w)
			return
		}
		BadRequestError("Malformed request body.").Write(w)
		return
	}

	tx, amountErr := parser.Transaction()
	// A missing description is reported before the amount.
	if amountErr != nil && strings.TrimSpace(tx.Description) != "" {
		ServiceError(r, amountErr).Write(w)
		return
	}

	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if len(key) > maxIdempotencyKey {
		BadRequestError("Idempotency-Key is too long.").Write(w)
		return
	}

	var (
		stored   core.Transaction
		replayed bool
		err      error
	)
	if key == "" {
		stored, err = s.service.Append(r.Context(), tx)
	} else {
		stored, replayed, err = s.idempotency.do(key, func() (core.Transaction, error) {
			return s.service.Append(r.Context(), tx)
		})
	}
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}

	resp := NewJSONResponse().Status(http.StatusCreated).Body(stored)
	if replayed {
		s.replayed.Add(1)
		resp.Header("Idempotent-Replayed", "true")
	} else {
		s.appended.Add(1)
	}
	resp.Write(w)
}

func (s *Server) handleDeleteAt(w http.ResponseWriter, r *http.Request) {
	index, err := pathInt(r, "index")
	if err != nil {
		BadRequestError("Invalid index: " + err.Error() + ".").Write(w)
		return
	}
	if err := s.service.RemoveAt(r.Context(), int(index)); err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Message("Transaction deleted successfully.").Write(w)
}

func (s *Server) handleDeleteByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		BadRequestError("Invalid id: " + err.Error() + ".").Write(w)
		return
	}
	if err := s.service.Remove(r.Context(), id); err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Message("Transaction deleted successfully.").Write(w)
}

// methodNotAllowed answers the methods a route does not serve with a JSON 405.
func methodNotAllowed(allowed string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError(allowed).Write(w)
	}
}
