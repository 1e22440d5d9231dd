package screening

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberd/internal/member/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func subject() Subject {
	return NewSubject("Amina", "Rahman", time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC), "P1234567")
}

func TestScreenMockModeWithoutAPIKey(t *testing.T) {
	client := NewClient("https://api.example.com", "", time.Second, discardLogger())
	assert.Equal(t, models.AMLClear, client.Screen(context.Background(), subject()))
}

func TestScreenClearAndMatch(t *testing.T) {
	var gotBody Subject
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/aml/search", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		matched := gotBody.LastName == "Flagged"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"matched": matched})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", time.Second, discardLogger())

	assert.Equal(t, models.AMLClear, client.Screen(context.Background(), subject()))
	assert.Equal(t, "1990-05-12", gotBody.DateOfBirth)

	flagged := subject()
	flagged.LastName = "Flagged"
	assert.Equal(t, models.AMLMatch, client.Screen(context.Background(), flagged))
}

func TestScreenProviderErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", time.Second, discardLogger())
	assert.Equal(t, models.AMLError, client.Screen(context.Background(), subject()))
}

func TestScreenUnreachableProviderIsUnchecked(t *testing.T) {
	// Nothing listens here.
	client := NewClient("http://127.0.0.1:1", "test-key", 200*time.Millisecond, discardLogger())
	assert.Equal(t, models.AMLUnchecked, client.Screen(context.Background(), subject()))
}
