package payables

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestRespondErrStatusMapping(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	cases := []struct {
		err  error
		want int
	}{
		{ErrAccountNotFound, http.StatusNotFound},
		{ErrOverPayment, http.StatusConflict},
		{ErrInvalidAmount, http.StatusBadRequest},
		{&pgconn.PgError{Code: "40001", Message: "could not serialize access"}, http.StatusConflict},
		{fmt.Errorf("register payment: %w", &pgconn.PgError{Code: "40001"}), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.respondErr(rec, tc.err)
		require.Equal(t, tc.want, rec.Code, "error %v", tc.err)
	}
}
