package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"company-service/internal/audit"
	redisrepo "company-service/internal/repository/redis"
	"company-service/internal/service"
	"company-service/internal/token"
	"company-service/internal/util"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta represents pagination metadata
type Meta struct {
	Total    int `json:"total,omitempty"`
	PageSize int `json:"page_size,omitempty"`
}

// successResponse creates a successful response
func successResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

// errorResponse creates an error response
func errorResponse(err error, message string) Response {
	return Response{
		Success: false,
		Error:   err.Error(),
		Message: message,
	}
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		util.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

// errInternal is what clients see for unclassified failures. The real
// error carries driver and query detail and stays in the logs.
var errInternal = errors.New("internal server error")

// respondWithError sends an error response
func respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	util.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
	)
	if statusCode == http.StatusInternalServerError {
		err = errInternal
	}
	respondWithJSON(w, statusCode, errorResponse(err, message))
}

// getStatusCode determines the appropriate HTTP status code for an error
func getStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrCompanyNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrCompanyExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrCompanyNotPending):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrCompanyBlocked):
		return http.StatusForbidden
	case errors.Is(err, token.ErrInvalidAccessToken), errors.Is(err, token.ErrInvalidRefreshToken):
		return http.StatusUnauthorized
	case errors.Is(err, redisrepo.ErrOTPNotFound), errors.Is(err, redisrepo.ErrOTPMismatch):
		return http.StatusBadRequest
	case errors.Is(err, redisrepo.ErrOTPAttemptsExceeded), errors.Is(err, service.ErrTooManyRequests):
		return http.StatusTooManyRequests
	case errors.Is(err, audit.ErrHistoryUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
