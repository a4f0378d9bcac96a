package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/estoque-gate/estoquegate/internal/domain/inventory"
	"github.com/estoque-gate/estoquegate/internal/port/outbound"
)

// DefaultSummaryTTL is how long a computed dashboard summary stays fresh.
const DefaultSummaryTTL = 30 * time.Second

// ReportService aggregates upstream data into the dashboard summary.
// Results are cached briefly per access token so a dashboard full of
// widgets does not fan out into repeated upstream list calls.
type ReportService struct {
	api    outbound.InventoryAPI
	logger *slog.Logger
	ttl    time.Duration

	mu    sync.Mutex
	cache map[uint64]summaryEntry
}

type summaryEntry struct {
	summary   inventory.Summary
	expiresAt time.Time
}

// ReportOption configures a ReportService.
type ReportOption func(*ReportService)

// WithSummaryTTL overrides the cache TTL.
func WithSummaryTTL(ttl time.Duration) ReportOption {
	return func(s *ReportService) {
		s.ttl = ttl
	}
}

// NewReportService creates a new ReportService.
func NewReportService(api outbound.InventoryAPI, logger *slog.Logger, opts ...ReportOption) *ReportService {
	s := &ReportService{
		api:    api,
		logger: logger,
		ttl:    DefaultSummaryTTL,
		cache:  make(map[uint64]summaryEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary computes the dashboard summary for the caller's access token.
// Products and movements are fetched concurrently.
func (s *ReportService) Summary(ctx context.Context, accessToken string) (inventory.Summary, error) {
	// Cache key is a hash of the token, never the token itself.
	key := xxhash.Sum64String(accessToken)

	s.mu.Lock()
	if entry, ok := s.cache[key]; ok && time.Now().Before(entry.expiresAt) {
		s.mu.Unlock()
		return entry.summary, nil
	}
	s.mu.Unlock()

	var (
		products  []inventory.Product
		movements []inventory.Movement
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.api.ListProducts(gctx, accessToken)
		return err
	})
	g.Go(func() error {
		var err error
		movements, err = s.api.ListMovements(gctx, accessToken)
		return err
	})
	if err := g.Wait(); err != nil {
		return inventory.Summary{}, err
	}

	summary := inventory.Summary{TotalProducts: len(products)}
	for _, p := range products {
		if p.LowStock() {
			summary.LowStock++
		}
	}
	for _, m := range movements {
		switch m.Type {
		case inventory.MovementEntry:
			summary.Entries++
		case inventory.MovementExit:
			summary.Exits++
		}
	}

	s.mu.Lock()
	s.cache[key] = summaryEntry{summary: summary, expiresAt: time.Now().Add(s.ttl)}
	// Drop stale entries so tokens that stopped being used don't pin memory.
	for k, entry := range s.cache {
		if time.Now().After(entry.expiresAt) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	s.logger.Debug("dashboard summary computed",
		"products", summary.TotalProducts,
		"low_stock", summary.LowStock)
	return summary, nil
}
