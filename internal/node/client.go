package node

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tanglekit/walletcore/pkg/models"
)

var (
	// ErrNetwork is returned when the node cannot be reached.
	ErrNetwork = errors.New("node: network error")

	// ErrTimeout is returned when a request exceeds its deadline.
	ErrTimeout = errors.New("node: request timed out")

	// ErrProtocol is returned for responses that are not valid API replies.
	ErrProtocol = errors.New("node: protocol error")

	// ErrRejectedByNode is returned when the node refuses a well-formed
	// request, carrying the node's own reason.
	ErrRejectedByNode = errors.New("node: request rejected")
)

const apiVersion = "1"

// Client speaks the JSON command API of a node over HTTP. All methods honor
// their context and map transport failures to the package error values, so
// callers can branch with errors.Is.
type Client struct {
	url    string
	http   *http.Client
	logger *slog.Logger
}

// NewClient returns a client for the node at url. timeout bounds each
// request in addition to any context deadline.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		http:   &http.Client{Timeout: timeout},
		logger: slog.Default().With("component", "node", "url", url),
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	Exception string `json:"exception"`
}

func (e errorResponse) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Exception
}

// call posts one command and decodes the reply into out.
func (c *Client) call(ctx context.Context, request, out any) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", ErrProtocol, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-IOTA-API-Version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		var nodeErr errorResponse
		if json.Unmarshal(data, &nodeErr) == nil && nodeErr.message() != "" {
			return fmt.Errorf("%w: %s", ErrRejectedByNode, nodeErr.message())
		}
		return fmt.Errorf("%w: unexpected status %d", ErrProtocol, resp.StatusCode)
	}

	var nodeErr errorResponse
	if json.Unmarshal(data, &nodeErr) == nil && nodeErr.message() != "" {
		return fmt.Errorf("%w: %s", ErrRejectedByNode, nodeErr.message())
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrProtocol, err)
	}
	return nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// GetNodeInfo returns the node's identity and milestone state.
func (c *Client) GetNodeInfo(ctx context.Context) (*models.NodeInfo, error) {
	req := struct {
		Command string `json:"command"`
	}{"getNodeInfo"}

	var info models.NodeInfo
	if err := c.call(ctx, req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetTransactionsToApprove asks the node for two tips to reference.
func (c *Client) GetTransactionsToApprove(ctx context.Context, depth uint64) (trunk, branch string, err error) {
	req := struct {
		Command string `json:"command"`
		Depth   uint64 `json:"depth"`
	}{"getTransactionsToApprove", depth}

	var resp struct {
		TrunkTransaction  string `json:"trunkTransaction"`
		BranchTransaction string `json:"branchTransaction"`
	}
	if err := c.call(ctx, req, &resp); err != nil {
		return "", "", err
	}
	if resp.TrunkTransaction == "" || resp.BranchTransaction == "" {
		return "", "", fmt.Errorf("%w: node returned no tips", ErrProtocol)
	}
	return resp.TrunkTransaction, resp.BranchTransaction, nil
}

// GetBalances returns the confirmed balance of each address, in the same
// order, together with the milestone index the balances were read at.
func (c *Client) GetBalances(ctx context.Context, addresses []string) ([]uint64, uint32, error) {
	req := struct {
		Command   string   `json:"command"`
		Addresses []string `json:"addresses"`
	}{"getBalances", addresses}

	var resp struct {
		Balances       []string `json:"balances"`
		MilestoneIndex uint32   `json:"milestoneIndex"`
	}
	if err := c.call(ctx, req, &resp); err != nil {
		return nil, 0, err
	}
	if len(resp.Balances) != len(addresses) {
		return nil, 0, fmt.Errorf("%w: got %d balances for %d addresses", ErrProtocol, len(resp.Balances), len(addresses))
	}

	balances := make([]uint64, len(resp.Balances))
	for i, raw := range resp.Balances {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: balance %q: %v", ErrProtocol, raw, err)
		}
		balances[i] = v
	}
	return balances, resp.MilestoneIndex, nil
}

// BroadcastTransactions gossips attached transaction trytes to neighbors.
func (c *Client) BroadcastTransactions(ctx context.Context, trytes []string) error {
	req := struct {
		Command string   `json:"command"`
		Trytes  []string `json:"trytes"`
	}{"broadcastTransactions", trytes}

	if err := c.call(ctx, req, nil); err != nil {
		return err
	}
	c.logger.Debug("broadcast transactions", "count", len(trytes))
	return nil
}

// StoreTransactions persists attached transaction trytes on the node.
func (c *Client) StoreTransactions(ctx context.Context, trytes []string) error {
	req := struct {
		Command string   `json:"command"`
		Trytes  []string `json:"trytes"`
	}{"storeTransactions", trytes}

	if err := c.call(ctx, req, nil); err != nil {
		return err
	}
	c.logger.Debug("stored transactions", "count", len(trytes))
	return nil
}
