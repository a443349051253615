package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/af-corp/reqbridge/internal/bridge"
)

// APIError is the JSON error envelope returned by the service.
type APIError struct {
	Error APIErrorBody `json:"error"`
}

type APIErrorBody struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, requestID string, statusCode int, errType, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIError{
		Error: APIErrorBody{
			Message:   message,
			Type:      errType,
			Code:      code,
			RequestID: requestID,
		},
	})
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func WriteAuthError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusUnauthorized, "authentication_error", "invalid_api_token", message)
}

func WriteBadRequestError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadRequest, "invalid_request_error", "invalid_request", message)
}

func WriteInternalError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusInternalServerError, "server_error", "internal_error", message)
}

// WriteRequestError maps a failed outgoing request onto a status code. Every
// bridge error carries the http_request_failed code; the type names the kind.
func WriteRequestError(w http.ResponseWriter, requestID string, err error) {
	var be *bridge.Error
	if !errors.As(err, &be) {
		WriteError(w, requestID, http.StatusBadGateway, "request_error", bridge.Code, err.Error())
		return
	}
	status := http.StatusBadGateway
	switch be.Kind {
	case bridge.KindRequestBlocked:
		status = http.StatusForbidden
	case bridge.KindDestinationUnwritable:
		status = http.StatusUnprocessableEntity
	}
	WriteError(w, requestID, status, string(be.Kind), be.Code(), be.Message)
}
