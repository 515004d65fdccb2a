package solana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// rpcServer answers every request with result, or with the RPC error if set.
func rpcServer(t *testing.T, wantMethod string, result any, rpcErr *RPCError) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Method != wantMethod {
			t.Errorf("expected method %s, got %s", wantMethod, req.Method)
		}

		resp := map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
		}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestHTTPClient_GetSlot(t *testing.T) {
	server := rpcServer(t, "getSlot", uint64(250_000_000), nil)
	defer server.Close()

	slot, err := NewHTTPClient(server.URL).GetSlot(context.Background())
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if slot != 250_000_000 {
		t.Errorf("expected slot 250000000, got %d", slot)
	}
}

func TestHTTPClient_GetBlockTime(t *testing.T) {
	server := rpcServer(t, "getBlockTime", int64(1700000000), nil)
	defer server.Close()

	ts, err := NewHTTPClient(server.URL).GetBlockTime(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetBlockTime: %v", err)
	}
	if ts != 1700000000 {
		t.Errorf("expected 1700000000, got %d", ts)
	}
}

func TestHTTPClient_GetBlockTime_Unavailable(t *testing.T) {
	server := rpcServer(t, "getBlockTime", nil, nil)
	defer server.Close()

	_, err := NewHTTPClient(server.URL).GetBlockTime(context.Background(), 42)
	if !errors.Is(err, ErrBlockTimeUnavailable) {
		t.Fatalf("expected ErrBlockTimeUnavailable, got %v", err)
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  uint64(999),
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)

	slot, err := client.GetSlot(context.Background())
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if slot != 999 {
		t.Errorf("expected slot 999, got %d", slot)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(2),
		WithRetryDelay(time.Millisecond),
	)

	if _, err := client.GetSlot(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := rpcServer(t, "getSlot", nil, &RPCError{Code: -32600, Message: "Invalid Request"})
	defer server.Close()

	_, err := NewHTTPClient(server.URL).GetSlot(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *RPCError, got %T", err)
	}
	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetSlot(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
