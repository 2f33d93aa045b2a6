package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tanglekit/walletcore/internal/storage"
	"github.com/tanglekit/walletcore/pkg/models"
)

// BalanceFetcher abstracts the node call for confirmed balances.
type BalanceFetcher interface {
	// GetBalances returns the balance of each address in order, plus the
	// milestone index the snapshot was taken at.
	GetBalances(ctx context.Context, addresses []string) ([]uint64, uint32, error)
}

// Watcher polls the confirmed balance of a set of watched addresses and
// emits an event whenever one changes between polls. Unlike account-based
// chains there is no incoming-transaction stream to subscribe to; balance
// deltas against the latest milestone are the observable signal.
type Watcher struct {
	pollInterval time.Duration
	events       chan models.BalanceEvent
	watchStore   storage.WatchStore
	fetcher      BalanceFetcher
	// known holds the balance seen at the previous poll. Addresses not yet
	// observed are treated as zero, so funding that lands before the first
	// poll still produces an event.
	known  map[string]uint64
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcher(pollInterval time.Duration, ws storage.WatchStore, fetcher BalanceFetcher) *Watcher {
	return &Watcher{
		pollInterval: pollInterval,
		events:       make(chan models.BalanceEvent, 100),
		watchStore:   ws,
		fetcher:      fetcher,
		known:        make(map[string]uint64),
		done:         make(chan struct{}),
		logger:       slog.Default().With("component", "monitor"),
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	w.logger.Info("starting balance watcher", "poll_interval", w.pollInterval)

	go w.pollLoop(ctx)
	return nil
}

func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.done // wait for pollLoop to exit
	close(w.events)
	w.logger.Info("watcher stopped")
	return nil
}

func (w *Watcher) WatchAddress(address string) error {
	if err := w.watchStore.Add(address); err != nil {
		return err
	}
	w.logger.Info("watching address", "address", address)
	return nil
}

func (w *Watcher) UnwatchAddress(address string) error {
	if err := w.watchStore.Remove(address); err != nil {
		return err
	}
	delete(w.known, address)
	w.logger.Info("unwatched address", "address", address)
	return nil
}

func (w *Watcher) Events() <-chan models.BalanceEvent {
	return w.events
}

func (w *Watcher) pollLoop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				w.logger.Error("poll failed", "error", err)
			}
		}
	}
}

func (w *Watcher) poll(ctx context.Context) error {
	addrs, err := w.watchStore.List()
	if err != nil {
		return fmt.Errorf("list watched: %w", err)
	}
	if len(addrs) == 0 {
		return nil
	}

	balances, milestone, err := w.fetcher.GetBalances(ctx, addrs)
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}

	for i, addr := range addrs {
		prev := w.known[addr]
		cur := balances[i]
		if cur == prev {
			continue
		}
		w.known[addr] = cur

		event := models.BalanceEvent{
			Address:        addr,
			Previous:       prev,
			Current:        cur,
			MilestoneIndex: milestone,
		}

		w.logger.Info("balance changed",
			"address", addr,
			"previous", prev,
			"current", cur,
			"milestone", milestone,
		)

		select {
		case w.events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
