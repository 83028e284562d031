package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"

	"safetyrag/internal/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

// handleError logs err with its goerr context and answers with a generic
// message. Internal details never reach the client.
func handleError(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	logger := logging.From(ctx)

	level := logger.Warn
	if statusCode >= http.StatusInternalServerError {
		level = logger.Error
	}

	var ge *goerr.Error
	if errors.As(err, &ge) {
		level("HTTP error",
			"status", statusCode,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		level("HTTP error",
			"status", statusCode,
			"error", err.Error(),
		)
	}

	writeJSON(ctx, w, statusCode, errorResponse{Error: publicMessage(statusCode)})
}

func publicMessage(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusNotFound:
		return "not found"
	default:
		return "internal server error"
	}
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.From(ctx).Error("failed to encode JSON response", "error", err.Error())
	}
}
