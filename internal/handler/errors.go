package handler

import (
	"errors"
	"net/http"

	"github.com/bachatgat/ledger/pkg/apperrors"
	"github.com/bachatgat/ledger/pkg/logger"
	"github.com/bachatgat/ledger/pkg/response"
)

// writeError maps service errors onto HTTP statuses. Unknown errors are
// reported as 500 without leaking their details to the client.
func writeError(w http.ResponseWriter, err error) {
	var businessErr *apperrors.BusinessError
	code := ""
	message := "internal server error"
	if errors.As(err, &businessErr) {
		code = businessErr.Code
		message = businessErr.Message
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		response.Error(w, http.StatusNotFound, code, message, nil)
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrUTRMismatch),
		errors.Is(err, apperrors.ErrInsufficientFunds):
		response.Error(w, http.StatusBadRequest, code, message, nil)
	case errors.Is(err, apperrors.ErrAlreadyPaid),
		errors.Is(err, apperrors.ErrAlreadyCompleted):
		response.Error(w, http.StatusConflict, code, message, nil)
	case errors.Is(err, apperrors.ErrUnauthorized):
		response.Error(w, http.StatusForbidden, code, message, nil)
	default:
		logger.Error("unhandled error", "error", err)
		response.Error(w, http.StatusInternalServerError, code, "internal server error", nil)
	}
}
