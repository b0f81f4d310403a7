package analytics

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// OrderFactRow is the order_facts table shape. One row per order
// lifecycle event.
type OrderFactRow struct {
	EventID     string    `bigquery:"event_id"`
	EventType   string    `bigquery:"event_type"`
	OrderID     string    `bigquery:"order_id"`
	StoreID     string    `bigquery:"store_id"`
	ExternalRef string    `bigquery:"external_ref"`
	FromStatus  string    `bigquery:"from_status"`
	ToStatus    string    `bigquery:"to_status"`
	GrandTotal  float64   `bigquery:"grand_total"`
	OccurredAt  time.Time `bigquery:"occurred_at"`
}

// Save implements bigquery.ValueSaver so rows insert with the event id
// as the dedupe key.
func (r OrderFactRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"event_id":     r.EventID,
		"event_type":   r.EventType,
		"order_id":     r.OrderID,
		"store_id":     r.StoreID,
		"external_ref": r.ExternalRef,
		"from_status":  r.FromStatus,
		"to_status":    r.ToStatus,
		"grand_total":  r.GrandTotal,
		"occurred_at":  r.OccurredAt,
	}, r.EventID, nil
}

// RevenueRow is the revenue_rows table shape. One row per wallet
// movement.
type RevenueRow struct {
	EventID      string    `bigquery:"event_id"`
	StoreID      string    `bigquery:"store_id"`
	WalletID     string    `bigquery:"wallet_id"`
	EntryID      string    `bigquery:"entry_id"`
	EntryType    string    `bigquery:"entry_type"`
	Category     string    `bigquery:"category"`
	Amount       float64   `bigquery:"amount"`
	BalanceAfter float64   `bigquery:"balance_after"`
	OccurredAt   time.Time `bigquery:"occurred_at"`
}

func (r RevenueRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"event_id":      r.EventID,
		"store_id":      r.StoreID,
		"wallet_id":     r.WalletID,
		"entry_id":      r.EntryID,
		"entry_type":    r.EntryType,
		"category":      r.Category,
		"amount":        r.Amount,
		"balance_after": r.BalanceAfter,
		"occurred_at":   r.OccurredAt,
	}, r.EventID, nil
}
