package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/stock-admin-cli/internal/adapters/store"
	"github.com/bnema/stock-admin-cli/internal/domain"
	"go.uber.org/zap"
)

// AggregateService keeps each warehouse's derived quantity total and product
// name listing consistent with the products that reference it. Consistency is
// eventual: a failed recompute leaves the warehouse stale until the next run,
// and concurrent mutations on the same warehouse race last-writer-wins on the
// aggregate, never on the product rows themselves.
type AggregateService struct {
	store  *store.Client
	logger *zap.Logger
}

func NewAggregateService(client *store.Client, logger *zap.Logger) *AggregateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AggregateService{store: client, logger: logger}
}

// RecomputeWarehouse rescans the warehouse's full product set and writes the
// derived fields back. Failures are logged and swallowed: a stale aggregate
// is preferable to failing the mutation that triggered the recompute.
func (s *AggregateService) RecomputeWarehouse(ctx context.Context, warehouseID string) {
	products, err := s.store.FullList(ctx, domain.ResourceProducts, store.ListOptions{
		Filter: fmt.Sprintf("warehouse=%s", quoteFilterValue(warehouseID)),
		Fields: "id,quantity,name",
	})
	if err != nil {
		s.logger.Warn("aggregate recompute: list products",
			zap.String("warehouse", warehouseID), zap.Error(err))
		return
	}

	total := 0
	names := make([]string, 0, len(products))
	for _, record := range products {
		product := domain.ProductFromRecord(record)
		total += product.Quantity
		if product.Name != "" {
			names = append(names, product.Name)
		}
	}

	// Trusted-path write directly on the store client: the sanitizing update
	// path would strip exactly these fields.
	_, err = s.store.Update(ctx, domain.ResourceWarehouses, warehouseID, domain.Record{
		"products_count": total,
		"products_name":  strings.Join(names, ", "),
	})
	if err != nil {
		s.logger.Warn("aggregate recompute: update warehouse",
			zap.String("warehouse", warehouseID), zap.Error(err))
		return
	}

	s.logger.Debug("aggregate recomputed",
		zap.String("warehouse", warehouseID),
		zap.Int("total_quantity", total),
		zap.Int("products", len(products)))
}

// RecomputeMany de-duplicates the id set and recomputes each warehouse
// sequentially. The sequencing is a deliberate throttle on the store, at the
// cost of O(n) latency.
func (s *AggregateService) RecomputeMany(ctx context.Context, warehouseIDs []string) {
	seen := make(map[string]struct{}, len(warehouseIDs))
	for _, id := range warehouseIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		s.RecomputeWarehouse(ctx, id)
	}
}

// RecomputeAll recomputes every warehouse, sequentially. Used after bulk
// import, where membership may have changed across many warehouses at once.
func (s *AggregateService) RecomputeAll(ctx context.Context) {
	warehouses, err := s.store.FullList(ctx, domain.ResourceWarehouses, store.ListOptions{
		Fields: "id",
	})
	if err != nil {
		s.logger.Warn("aggregate recompute all: list warehouses", zap.Error(err))
		return
	}

	ids := make([]string, 0, len(warehouses))
	for _, record := range warehouses {
		ids = append(ids, record.ID())
	}
	s.RecomputeMany(ctx, ids)
}
