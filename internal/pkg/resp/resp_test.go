package resp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"roomrelay/internal/pkg/errs"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body JSONResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestRespondSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondSuccess(rec, httptest.NewRequest(http.MethodGet, "/health", nil), map[string]string{"status": "ok"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body.Code != 0 || body.Message != "success" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestRespondError(t *testing.T) {
	testCases := []struct {
		name       string
		err        *errs.CustomError
		wantStatus int
		wantCode   int
	}{
		{name: "rate limited", err: errs.NewError(errs.ErrRateLimitExceeded), wantStatus: http.StatusTooManyRequests, wantCode: errs.ErrRateLimitExceeded},
		{name: "nil error", err: nil, wantStatus: http.StatusInternalServerError, wantCode: errs.ErrUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			if body := decode(t, rec); body.Code != tc.wantCode || body.Message == "" {
				t.Errorf("unexpected body %+v", body)
			}
		})
	}
}

func TestRespondText(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondText(rec, httptest.NewRequest(http.MethodGet, "/", nil), "hello")

	if rec.Code != http.StatusOK || rec.Body.String() != "hello" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}
