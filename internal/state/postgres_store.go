package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// PostgresStore is the Store for deployments running more than one gateway
// replica. The schema is applied by storage.OpenPostgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

const pgUserColumns = `id::text, external_id, name, coalesce(email, ''), coalesce(image_url, ''), created_at, updated_at`

func (t *pgTx) UserByExternalID(ctx context.Context, externalID string) (*User, error) {
	var u User
	err := t.tx.QueryRow(ctx, `SELECT `+pgUserColumns+` FROM users WHERE external_id = $1`, externalID).
		Scan(&u.ID, &u.ExternalID, &u.Name, &u.Email, &u.ImageURL, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	return &u, nil
}

func (t *pgTx) InsertUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := nowUTC()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := t.tx.Exec(ctx, `
INSERT INTO users (id, external_id, name, email, image_url, created_at, updated_at)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $6)`,
		u.ID, u.ExternalID, u.Name, nullString(u.Email), nullString(u.ImageURL), now)
	if err != nil {
		return fmt.Errorf("insert user: %w", pgErr(err))
	}
	return nil
}

func (t *pgTx) UpdateUser(ctx context.Context, u *User) error {
	u.UpdatedAt = nowUTC()
	tag, err := t.tx.Exec(ctx, `
UPDATE users SET name = $1, email = $2, image_url = $3, updated_at = $4
WHERE id = $5::uuid`,
		u.Name, nullString(u.Email), nullString(u.ImageURL), u.UpdatedAt, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireTag(tag)
}

func (t *pgTx) DeleteUser(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM users WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireTag(tag)
}

const pgSubscriptionColumns = `id::text, user_id::text, stripe_customer_id, coalesce(stripe_subscription_id, ''), status, coalesce(plan, ''), created_at, updated_at`

func scanPGSubscription(row pgx.Row) (*Subscription, error) {
	var s Subscription
	err := row.Scan(&s.ID, &s.UserID, &s.StripeCustomerID, &s.StripeSubscriptionID, &s.Status, &s.Plan, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *pgTx) SubscriptionByCustomerID(ctx context.Context, customerID string) (*Subscription, error) {
	s, err := scanPGSubscription(t.tx.QueryRow(ctx, `SELECT `+pgSubscriptionColumns+` FROM subscriptions WHERE stripe_customer_id = $1`, customerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read subscription: %w", err)
	}
	return s, nil
}

func (t *pgTx) SubscriptionsByUserID(ctx context.Context, userID string) ([]Subscription, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+pgSubscriptionColumns+` FROM subscriptions WHERE user_id = $1::uuid ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		s, err := scanPGSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return out, nil
}

func (t *pgTx) InsertSubscription(ctx context.Context, s *Subscription) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := nowUTC()
	s.CreatedAt, s.UpdatedAt = now, now

	_, err := t.tx.Exec(ctx, `
INSERT INTO subscriptions (id, user_id, stripe_customer_id, stripe_subscription_id, status, plan, created_at, updated_at)
VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $7)`,
		s.ID, s.UserID, s.StripeCustomerID, nullString(s.StripeSubscriptionID), s.Status, nullString(s.Plan), now)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", pgErr(err))
	}
	return nil
}

func (t *pgTx) UpdateSubscription(ctx context.Context, s *Subscription) error {
	s.UpdatedAt = nowUTC()
	tag, err := t.tx.Exec(ctx, `
UPDATE subscriptions
SET user_id = $1::uuid, stripe_subscription_id = $2, status = $3, plan = $4, updated_at = $5
WHERE id = $6::uuid`,
		s.UserID, nullString(s.StripeSubscriptionID), s.Status, nullString(s.Plan), s.UpdatedAt, s.ID)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return requireTag(tag)
}

func (t *pgTx) CustomerLink(ctx context.Context, customerID string) (string, error) {
	var externalID string
	err := t.tx.QueryRow(ctx, `SELECT external_id FROM customer_links WHERE stripe_customer_id = $1`, customerID).Scan(&externalID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read customer link: %w", err)
	}
	return externalID, nil
}

func (t *pgTx) LinkCustomer(ctx context.Context, customerID, externalID string) error {
	if customerID == "" || externalID == "" {
		return fmt.Errorf("customer link requires both ids")
	}
	_, err := t.tx.Exec(ctx, `
INSERT INTO customer_links (stripe_customer_id, external_id, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (stripe_customer_id) DO UPDATE SET
  external_id = excluded.external_id,
  updated_at = excluded.updated_at`,
		customerID, externalID, nowUTC())
	if err != nil {
		return fmt.Errorf("upsert customer link: %w", err)
	}
	return nil
}

func requireTag(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func pgErr(err error) error {
	var pe *pgconn.PgError
	if errors.As(err, &pe) && pe.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pe.ConstraintName)
	}
	return err
}
