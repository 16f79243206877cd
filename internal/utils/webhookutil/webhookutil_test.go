package webhookutil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type testPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func TestInvokeDeliversJSON(t *testing.T) {
	var got testPayload
	var contentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := Invoke(context.Background(), server.URL, testPayload{ID: "job-1", Status: "COMPLETED"})
	require.NoError(t, err)
	require.Equal(t, "application/json", contentType)
	require.Equal(t, testPayload{ID: "job-1", Status: "COMPLETED"}, got)
}

func TestInvokeAcceptsAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	require.NoError(t, Invoke(context.Background(), server.URL, testPayload{ID: "job-1"}))
}

func TestInvokeRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := Invoke(context.Background(), server.URL, testPayload{ID: "job-1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}

func TestInvokeWithRetriesReturnsLastError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := InvokeWithRetries(context.Background(), server.URL, testPayload{ID: "job-1"}, 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
	require.Equal(t, int32(1), calls.Load())
}

func TestInvokeWithRetriesStopsWhenCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := InvokeWithRetries(ctx, server.URL, testPayload{ID: "job-1"}, 3)
	require.ErrorIs(t, err, context.Canceled)
}
