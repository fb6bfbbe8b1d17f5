package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/vidshare/backend/internal/apperr"
)

func TestErrorMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", apperr.Validation("title is required"), http.StatusBadRequest, "title is required"},
		{"notFound", fmt.Errorf("video %s: %w", "x", apperr.ErrNotFound), http.StatusNotFound, "not found"},
		{"wrappedForbidden", fmt.Errorf("delete video %s: %w", "x", fmt.Errorf("%w: not the owner", apperr.ErrForbidden)), http.StatusForbidden, "forbidden"},
		{"forbidden", fmt.Errorf("%w: not the owner", apperr.ErrForbidden), http.StatusForbidden, "not the owner"},
		{"unauthenticated", apperr.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{"conflict", fmt.Errorf("%w: email already registered", apperr.ErrConflict), http.StatusConflict, "email already registered"},
		{"upstream", apperr.Upstream("query videos", errors.New("dial tcp: refused")), http.StatusServiceUnavailable, "service temporarily unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			Error(c, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status: got %d want %d", rec.Code, tc.wantStatus)
			}
			var body Body
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success {
				t.Fatal("success: want false")
			}
			if tc.wantMsg != "" && body.Error != tc.wantMsg {
				t.Fatalf("error: got %q want %q", body.Error, tc.wantMsg)
			}
		})
	}
}

func TestErrorAttachesServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Error(c, apperr.Upstream("insert video", errors.New("connection reset")))

	if len(c.Errors) != 1 {
		t.Fatalf("context errors: got %d, want 1", len(c.Errors))
	}
	if !errors.Is(c.Errors[0].Err, apperr.ErrUpstream) {
		t.Fatalf("attached error: %v", c.Errors[0].Err)
	}
}
