package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLiteStore is the default Store, backed by a database opened with
// storage.OpenSQLite.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type sqliteTx struct {
	tx *sql.Tx
}

const sqliteUserColumns = `id, external_id, name, email, image_url, created_at, updated_at`

func (t *sqliteTx) UserByExternalID(ctx context.Context, externalID string) (*User, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE external_id = ?;`, externalID)

	var (
		u                  User
		email, imageURL    sql.NullString
		createdAt, updated string
	)
	err := row.Scan(&u.ID, &u.ExternalID, &u.Name, &email, &imageURL, &createdAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	u.Email = email.String
	u.ImageURL = imageURL.String
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updated)
	return &u, nil
}

func (t *sqliteTx) InsertUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := nowUTC()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := t.tx.ExecContext(ctx, `
INSERT INTO users(id, external_id, name, email, image_url, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?);
`, u.ID, u.ExternalID, u.Name, nullString(u.Email), nullString(u.ImageURL), formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("insert user: %w", sqliteErr(err))
	}
	return nil
}

func (t *sqliteTx) UpdateUser(ctx context.Context, u *User) error {
	u.UpdatedAt = nowUTC()
	res, err := t.tx.ExecContext(ctx, `
UPDATE users SET name = ?, email = ?, image_url = ?, updated_at = ?
WHERE id = ?;
`, u.Name, nullString(u.Email), nullString(u.ImageURL), formatTime(u.UpdatedAt), u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(res)
}

func (t *sqliteTx) DeleteUser(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res)
}

const sqliteSubscriptionColumns = `id, user_id, stripe_customer_id, stripe_subscription_id, status, plan, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSubscription(row scanner) (*Subscription, error) {
	var (
		s                  Subscription
		subID, plan        sql.NullString
		createdAt, updated string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.StripeCustomerID, &subID, &s.Status, &plan, &createdAt, &updated); err != nil {
		return nil, err
	}
	s.StripeSubscriptionID = subID.String
	s.Plan = plan.String
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updated)
	return &s, nil
}

func (t *sqliteTx) SubscriptionByCustomerID(ctx context.Context, customerID string) (*Subscription, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+sqliteSubscriptionColumns+` FROM subscriptions WHERE stripe_customer_id = ?;`, customerID)
	s, err := scanSQLiteSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read subscription: %w", err)
	}
	return s, nil
}

func (t *sqliteTx) SubscriptionsByUserID(ctx context.Context, userID string) ([]Subscription, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+sqliteSubscriptionColumns+` FROM subscriptions WHERE user_id = ? ORDER BY created_at ASC, rowid ASC;`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		s, err := scanSQLiteSubscription(rows)
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

func (t *sqliteTx) InsertSubscription(ctx context.Context, s *Subscription) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := nowUTC()
	s.CreatedAt, s.UpdatedAt = now, now

	_, err := t.tx.ExecContext(ctx, `
INSERT INTO subscriptions(id, user_id, stripe_customer_id, stripe_subscription_id, status, plan, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?);
`, s.ID, s.UserID, s.StripeCustomerID, nullString(s.StripeSubscriptionID), s.Status, nullString(s.Plan), formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("insert subscription: %w", sqliteErr(err))
	}
	return nil
}

func (t *sqliteTx) UpdateSubscription(ctx context.Context, s *Subscription) error {
	s.UpdatedAt = nowUTC()
	res, err := t.tx.ExecContext(ctx, `
UPDATE subscriptions
SET user_id = ?, stripe_subscription_id = ?, status = ?, plan = ?, updated_at = ?
WHERE id = ?;
`, s.UserID, nullString(s.StripeSubscriptionID), s.Status, nullString(s.Plan), formatTime(s.UpdatedAt), s.ID)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return requireRow(res)
}

func (t *sqliteTx) CustomerLink(ctx context.Context, customerID string) (string, error) {
	var externalID string
	err := t.tx.QueryRowContext(ctx, `SELECT external_id FROM customer_links WHERE stripe_customer_id = ?;`, customerID).Scan(&externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read customer link: %w", err)
	}
	return externalID, nil
}

func (t *sqliteTx) LinkCustomer(ctx context.Context, customerID, externalID string) error {
	if customerID == "" || externalID == "" {
		return fmt.Errorf("customer link requires both ids")
	}
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO customer_links(stripe_customer_id, external_id, updated_at)
VALUES(?, ?, ?)
ON CONFLICT(stripe_customer_id) DO UPDATE SET
  external_id = excluded.external_id,
  updated_at = excluded.updated_at;
`, customerID, externalID, formatTime(nowUTC()))
	if err != nil {
		return fmt.Errorf("upsert customer link: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// sqliteErr maps unique constraint failures to ErrConflict.
func sqliteErr(err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
