package mw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/shortlist/internal/auth"
	"github.com/MrSnakeDoc/shortlist/internal/logger"
)

func TestBearer(t *testing.T) {
	v, err := auth.NewVerifier("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	token, err := v.Issue("alice", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	var seen string
	h := Bearer(v, logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"tampered", "Bearer " + token + "x", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("got %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && seen != "alice" {
				t.Errorf("user id in context = %q", seen)
			}
			if tt.want == http.StatusUnauthorized && seen != "" {
				t.Error("handler ran for an unauthenticated request")
			}
		})
	}
}

func TestUserIDOutsideBearer(t *testing.T) {
	if got := UserID(context.Background()); got != "" {
		t.Errorf("got %q", got)
	}
	if got := UserID(WithUserID(context.Background(), "bob")); got != "bob" {
		t.Errorf("got %q", got)
	}
}
