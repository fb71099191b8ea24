package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	redisrepo "company-service/internal/repository/redis"
	"company-service/internal/service"
	"company-service/internal/util"
)

func init() {
	util.Init("development", "error", "console")
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestRespondWithErrorHidesInternalDetail(t *testing.T) {
	wrapped := fmt.Errorf("failed to create company: gocql: no hosts available in the pool")

	rec := httptest.NewRecorder()
	respondWithError(rec, getStatusCode(wrapped), wrapped, "registration failed")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error != "internal server error" {
		t.Fatalf("error body = %q, want generic message", resp.Error)
	}
	if strings.Contains(rec.Body.String(), "gocql") {
		t.Fatalf("driver detail leaked to client: %s", rec.Body.String())
	}
}

func TestRespondWithErrorKeepsClassifiedDetail(t *testing.T) {
	err := fmt.Errorf("%w: rejection reason is required", service.ErrInvalidInput)

	rec := httptest.NewRecorder()
	respondWithError(rec, getStatusCode(err), err, "invalid request")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if !strings.Contains(resp.Error, "rejection reason is required") {
		t.Fatalf("classified error lost its detail: %q", resp.Error)
	}
}

func TestGetStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrCompanyNotFound, http.StatusNotFound},
		{service.ErrCompanyExists, http.StatusConflict},
		{service.ErrCompanyNotPending, http.StatusConflict},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrCompanyBlocked, http.StatusForbidden},
		{service.ErrTooManyRequests, http.StatusTooManyRequests},
		{redisrepo.ErrOTPAttemptsExceeded, http.StatusTooManyRequests},
		{redisrepo.ErrOTPNotFound, http.StatusBadRequest},
		{fmt.Errorf("kafka: write failed"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := getStatusCode(tc.err); got != tc.want {
			t.Errorf("getStatusCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
