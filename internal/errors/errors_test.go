package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{ValidationWrap(io.EOF, "bad range"), http.StatusBadRequest},
		{BadRequestWrap(io.EOF, "bad body"), http.StatusBadRequest},
		{RateLimit("slow down"), http.StatusTooManyRequests},
		{ServiceUnavailable("loading"), http.StatusServiceUnavailable},
		{Upstream(io.ErrUnexpectedEOF, "fetch sales"), http.StatusBadGateway},
		{Internal("boom"), http.StatusInternalServerError},
		{InternalWrap(io.EOF, "boom"), http.StatusInternalServerError},
	}

	if got := ErrorCode("SOMETHING_NEW").StatusCode(); got != http.StatusInternalServerError {
		t.Errorf("unknown code status = %d, want 500", got)
	}

	for _, tt := range tests {
		if tt.err.StatusCode != tt.want {
			t.Errorf("%s: StatusCode = %d, want %d", tt.err.Code, tt.err.StatusCode, tt.want)
		}
	}
}

func TestIsAndUnwrap(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := fmt.Errorf("round 3: %w", Upstream(cause, "fetch metrics"))

	if !Is(err, CodeUpstream) {
		t.Error("Is() should find the wrapped upstream error")
	}
	if Is(err, CodeValidation) {
		t.Error("Is() matched the wrong code")
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is() should reach the cause through Unwrap")
	}
}

func TestWriteSuccessWithHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessWithHeaders(w, map[string]int{"total": 3}, map[string]string{"Cache-Control": "no-store"})

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	var resp struct {
		Success bool           `json:"success"`
		Data    map[string]int `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data["total"] != 3 {
		t.Errorf("unexpected envelope %+v", resp)
	}
}

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
	}{
		{"app error", ServiceUnavailable("no snapshot yet"), http.StatusServiceUnavailable, CodeServiceUnavail},
		{"wrapped app error", fmt.Errorf("handler: %w", BadRequestWrap(io.EOF, "bad page")), http.StatusBadRequest, CodeBadRequest},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, logger, tt.err, "req-1")

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var resp struct {
				Success bool `json:"success"`
				Error   struct {
					Code      ErrorCode `json:"code"`
					RequestID string    `json:"request_id"`
				} `json:"error"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Success {
				t.Error("success should be false")
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Error.Code, tt.wantCode)
			}
			if resp.Error.RequestID != "req-1" {
				t.Errorf("request_id = %q, want req-1", resp.Error.RequestID)
			}
		})
	}
}
