package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient() *Client {
	return NewClient(Config{
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			NoJitter:     true,
		},
	})
}

func TestClient_GetDecodesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"categories":["action","rpg"]}`))
	}))
	defer server.Close()

	var out struct {
		Categories []string `json:"categories"`
	}
	if err := testClient().Get(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(out.Categories) != 2 || out.Categories[0] != "action" {
		t.Errorf("decoded %v", out.Categories)
	}
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"already in wishlist"}`))
	}))
	defer server.Close()

	err := testClient().DoJSON(context.Background(), http.MethodPost, server.URL, map[string]any{"product_id": "42"}, nil)
	if err == nil {
		t.Fatal("expected error for 409 response")
	}
	if !IsStatus(err, http.StatusConflict) {
		t.Errorf("IsStatus(err, 409) = false, err = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("4xx should not be retried, got %d calls", calls.Load())
	}

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatal("error should be a *StatusError")
	}
	if string(se.Body) != `{"error":"already in wishlist"}` {
		t.Errorf("Body = %q", se.Body)
	}
}

func TestClient_ServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	var out struct {
		Success bool `json:"success"`
	}
	if err := testClient().Get(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("Get should succeed after retries: %v", err)
	}
	if !out.Success {
		t.Error("decoded success=false")
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClient_ExhaustedRetriesReturnLastError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := testClient().Get(context.Background(), server.URL, nil)
	if !IsStatus(err, http.StatusInternalServerError) {
		t.Errorf("expected final 500, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClient_CancellationNotRetried(t *testing.T) {
	var calls atomic.Int32
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-block
	}))
	defer server.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := testClient().Get(ctx, server.URL, nil)
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls.Load() != 1 {
		t.Errorf("canceled request should not be retried, got %d calls", calls.Load())
	}
}

func TestClient_TimeoutMapsToErrTimeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := NewClient(Config{
		Timeout: 20 * time.Millisecond,
		Retry:   RetryConfig{MaxAttempts: 1},
	})

	err := client.Get(context.Background(), server.URL, nil)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}
