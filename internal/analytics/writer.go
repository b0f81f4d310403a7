package analytics

import (
	"context"
	"fmt"

	"github.com/dishpatch/merchant-backend/pkg/config"
)

type rowInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// Writer appends analytics rows to the warehouse tables.
type Writer struct {
	inserter rowInserter
	cfg      config.BigQueryConfig
}

// NewWriter binds the inserter to the configured table names.
func NewWriter(inserter rowInserter, cfg config.BigQueryConfig) (*Writer, error) {
	if inserter == nil {
		return nil, fmt.Errorf("row inserter required")
	}
	if cfg.OrderFactsTable == "" || cfg.RevenueRowsTable == "" {
		return nil, fmt.Errorf("analytics table names required")
	}
	return &Writer{inserter: inserter, cfg: cfg}, nil
}

// WriteOrderFacts appends order lifecycle rows.
func (w *Writer) WriteOrderFacts(ctx context.Context, rows ...OrderFactRow) error {
	if len(rows) == 0 {
		return nil
	}
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	return w.inserter.InsertRows(ctx, w.cfg.OrderFactsTable, out)
}

// WriteRevenueRows appends wallet movement rows.
func (w *Writer) WriteRevenueRows(ctx context.Context, rows ...RevenueRow) error {
	if len(rows) == 0 {
		return nil
	}
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	return w.inserter.InsertRows(ctx, w.cfg.RevenueRowsTable, out)
}
