package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ArchivedOrder is a completed checkout recorded from the analytics topic.
// Items is stored as a JSON array of product ids.
type ArchivedOrder struct {
	OrderID     string    `db:"order_id" json:"order_id"`
	SessionID   string    `db:"session_id" json:"session_id"`
	Payment     string    `db:"payment" json:"payment"`
	Total       int64     `db:"total" json:"total"`
	Items       string    `db:"items" json:"-"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}

// ItemIDs decodes the stored items column.
func (o *ArchivedOrder) ItemIDs() ([]string, error) {
	var ids []string
	if err := json.Unmarshal([]byte(o.Items), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode archived items: %w", err)
	}
	return ids, nil
}

// ArchiveOrder records a completed checkout. Replays of the same order id
// are no-ops.
func (s *Store) ArchiveOrder(ctx context.Context, order *ArchivedOrder) error {
	query := `
		INSERT INTO archived_orders (order_id, session_id, payment, total, items, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query,
		order.OrderID, order.SessionID, order.Payment, order.Total, order.Items, order.CompletedAt)
	return err
}

// GetArchivedOrder retrieves an archived order by the shop's order id
func (s *Store) GetArchivedOrder(ctx context.Context, orderID string) (*ArchivedOrder, error) {
	var order ArchivedOrder
	err := s.db.GetContext(ctx, &order, "SELECT * FROM archived_orders WHERE order_id = $1", orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("archived order not found: %s", orderID)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetArchivedOrdersBySession retrieves all archived orders for a session
func (s *Store) GetArchivedOrdersBySession(ctx context.Context, sessionID string) ([]ArchivedOrder, error) {
	var orders []ArchivedOrder
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM archived_orders WHERE session_id = $1 ORDER BY completed_at DESC", sessionID)
	return orders, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
