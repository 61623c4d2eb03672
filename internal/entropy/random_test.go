package entropy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveKeepsConfiguredSeed(t *testing.T) {
	if got := Resolve(42, nil); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := Resolve(0, nil); got <= 0 {
		t.Errorf("expected a positive crypto seed, got %d", got)
	}
}

func TestNewClientWithoutKey(t *testing.T) {
	if c := NewClient(""); c != nil {
		t.Error("expected nil client without a key")
	}
}

func TestClientUsesPool(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req struct {
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "generateIntegers" {
			t.Errorf("expected generateIntegers, got %s", req.Method)
		}
		w.Write([]byte(`{"jsonrpc":"2.0","result":{"random":{"data":[7,0,9]}},"id":1}`))
	}))
	defer srv.Close()

	c := NewClient("key").WithEndpoint(srv.URL)
	if got := c.Seed(); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if got := c.Seed(); got != 9 {
		t.Errorf("expected 9 (zero skipped), got %d", got)
	}
	if calls != 1 {
		t.Errorf("expected one request, got %d", calls)
	}
}

func TestClientFallsBackOnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","error":{"message":"quota"},"id":1}`))
	}))
	defer srv.Close()

	c := NewClient("key").WithEndpoint(srv.URL)
	if got := c.Seed(); got <= 0 {
		t.Errorf("expected crypto fallback seed, got %d", got)
	}
}
