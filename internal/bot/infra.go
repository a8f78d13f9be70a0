package bot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a tenant-scoped record does not exist.
var ErrNotFound = errors.New("not found")

type repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) Repo {
	return &repo{db: db}
}

func (r *repo) Catalog(ctx context.Context, tenant string) (*Catalog, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT data FROM catalogs WHERE tenant = $1
	`, tenant).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog %s: %w", tenant, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var cat Catalog
	if err := json.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", tenant, err)
	}
	return &cat, nil
}

func (r *repo) SaveCatalog(ctx context.Context, tenant string, cat *Catalog) error {
	raw, err := json.Marshal(cat)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO catalogs (tenant, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (tenant) DO UPDATE SET data = $2, updated_at = now()
	`, tenant, raw)
	return err
}

// SaveSession upserts the session by (tenant, peer); the aggregate
// counters exposed by Conversations derive from this table.
func (r *repo) SaveSession(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (tenant, peer, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (tenant, peer) DO UPDATE SET data = $3, updated_at = now()
	`, sess.Tenant, sess.Peer, raw)
	return err
}

func (r *repo) Conversations(ctx context.Context, tenant string) (*ConversationLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT data, updated_at FROM sessions
		WHERE tenant = $1
		ORDER BY updated_at DESC
	`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	log := &ConversationLog{}
	for rows.Next() {
		var raw []byte
		var updated time.Time
		if err := rows.Scan(&raw, &updated); err != nil {
			return nil, err
		}
		var sess Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return nil, err
		}
		log.Sessions = append(log.Sessions, sess)
		if updated.After(log.LastUpdate) {
			log.LastUpdate = updated
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	log.TotalConversations = len(log.Sessions)
	return log, nil
}

// CreateOrder appends to the tenant's order list. Status lives in its
// own column so listings can filter without decoding the record.
func (r *repo) CreateOrder(ctx context.Context, ord *Order) error {
	raw, err := json.Marshal(ord)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (id, tenant, status, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, ord.ID, ord.Tenant, ord.Status, raw, ord.CreatedAt)
	return err
}

func (r *repo) Orders(ctx context.Context, tenant string, status string) ([]Order, error) {
	query := `
		SELECT data FROM orders
		WHERE tenant = $1
		ORDER BY created_at DESC
	`
	args := []any{tenant}
	if status != "" {
		query = `
			SELECT data FROM orders
			WHERE tenant = $1 AND status = $2
			ORDER BY created_at DESC
		`
		args = append(args, status)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var ord Order
		if err := json.Unmarshal(raw, &ord); err != nil {
			return nil, err
		}
		out = append(out, ord)
	}
	return out, rows.Err()
}

func (r *repo) Order(ctx context.Context, tenant string, id string) (*Order, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT data FROM orders WHERE tenant = $1 AND id = $2
	`, tenant, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var ord Order
	if err := json.Unmarshal(raw, &ord); err != nil {
		return nil, err
	}
	return &ord, nil
}

func (r *repo) UpdateOrderStatus(ctx context.Context, tenant string, id string, status string) (*Order, error) {
	ord, err := r.Order(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	ord.Status = status
	ord.UpdatedAt = time.Now()
	raw, err := json.Marshal(ord)
	if err != nil {
		return nil, err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $3, data = $4, updated_at = now()
		WHERE tenant = $1 AND id = $2
	`, tenant, id, status, raw)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return ord, nil
}

func (r *repo) DeleteOrder(ctx context.Context, tenant string, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM orders WHERE tenant = $1 AND id = $2
	`, tenant, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *repo) OrderStats(ctx context.Context, tenant string) (*OrderStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, count(*), coalesce(sum((data->>'total_amount')::numeric), 0)
		FROM orders
		WHERE tenant = $1
		GROUP BY status
	`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &OrderStats{}
	for rows.Next() {
		var status string
		var count int
		var revenue float64
		if err := rows.Scan(&status, &count, &revenue); err != nil {
			return nil, err
		}
		stats.Total += count
		switch status {
		case OrderStatusNew:
			stats.New = count
		case OrderStatusConfirmed:
			stats.Confirmed = count
		case OrderStatusShipped:
			stats.Shipped = count
		case OrderStatusDelivered:
			stats.Delivered = count
		case OrderStatusCancelled:
			stats.Cancelled = count
		}
		if status != OrderStatusCancelled {
			stats.TotalRevenue += revenue
		}
	}
	return stats, rows.Err()
}
