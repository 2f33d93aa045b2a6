package node

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func decodeCommand(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	return body
}

func TestGetNodeInfo(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-IOTA-API-Version"); got != "1" {
			t.Errorf("missing API version header, got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("wrong content type %q", got)
		}
		body := decodeCommand(t, r)
		if body["command"] != "getNodeInfo" {
			t.Errorf("wrong command %v", body["command"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"appName":              "IRI",
			"appVersion":           "1.6.1",
			"latestMilestone":      strings.Repeat("M", 81),
			"latestMilestoneIndex": 1050000,
			"time":                 1700000000000,
		})
	})

	c := NewClient(srv.URL, time.Second)
	info, err := c.GetNodeInfo(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.AppName != "IRI" {
		t.Errorf("app name %q", info.AppName)
	}
	if info.LatestMilestoneIndex != 1050000 {
		t.Errorf("milestone index %d", info.LatestMilestoneIndex)
	}
}

func TestGetTransactionsToApprove(t *testing.T) {
	trunk := strings.Repeat("T", 81)
	branch := strings.Repeat("B", 81)

	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeCommand(t, r)
		if body["command"] != "getTransactionsToApprove" {
			t.Errorf("wrong command %v", body["command"])
		}
		if body["depth"] != float64(3) {
			t.Errorf("wrong depth %v", body["depth"])
		}
		json.NewEncoder(w).Encode(map[string]string{
			"trunkTransaction":  trunk,
			"branchTransaction": branch,
		})
	})

	c := NewClient(srv.URL, time.Second)
	gotTrunk, gotBranch, err := c.GetTransactionsToApprove(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if gotTrunk != trunk || gotBranch != branch {
		t.Error("tips do not match response")
	}
}

func TestGetTransactionsToApproveEmptyTips(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	})

	c := NewClient(srv.URL, time.Second)
	if _, _, err := c.GetTransactionsToApprove(context.Background(), 3); !errors.Is(err, ErrProtocol) {
		t.Errorf("expected ErrProtocol, got %v", err)
	}
}

func TestGetBalances(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeCommand(t, r)
		if body["command"] != "getBalances" {
			t.Errorf("wrong command %v", body["command"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"balances":       []string{"1000", "0"},
			"milestoneIndex": 1050001,
		})
	})

	c := NewClient(srv.URL, time.Second)
	balances, milestone, err := c.GetBalances(context.Background(), []string{"ADDR1", "ADDR2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(balances) != 2 || balances[0] != 1000 || balances[1] != 0 {
		t.Errorf("balances %v", balances)
	}
	if milestone != 1050001 {
		t.Errorf("milestone %d", milestone)
	}
}

func TestGetBalancesCountMismatch(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"balances": []string{"1"}})
	})

	c := NewClient(srv.URL, time.Second)
	if _, _, err := c.GetBalances(context.Background(), []string{"A", "B"}); !errors.Is(err, ErrProtocol) {
		t.Errorf("expected ErrProtocol, got %v", err)
	}
}

func TestRejectedByNode(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"error field", http.StatusBadRequest, `{"error":"invalid trytes"}`},
		{"exception field", http.StatusInternalServerError, `{"exception":"milestone not solid"}`},
		{"error with 200", http.StatusOK, `{"error":"command unknown"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			c := NewClient(srv.URL, time.Second)
			err := c.BroadcastTransactions(context.Background(), []string{"TRYTES"})
			if !errors.Is(err, ErrRejectedByNode) {
				t.Errorf("expected ErrRejectedByNode, got %v", err)
			}
		})
	}
}

func TestProtocolErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"garbage body", "not json", http.StatusOK},
		{"bare error status", "", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			})

			c := NewClient(srv.URL, time.Second)
			_, err := c.GetNodeInfo(context.Background())
			if !errors.Is(err, ErrProtocol) {
				t.Errorf("expected ErrProtocol, got %v", err)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := NewClient(srv.URL, time.Second)
	_, err := c.GetNodeInfo(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}

func TestTimeout(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	})

	c := NewClient(srv.URL, 50*time.Millisecond)
	_, err := c.GetNodeInfo(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestContextDeadline(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	})

	c := NewClient(srv.URL, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.GetNodeInfo(ctx)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}
