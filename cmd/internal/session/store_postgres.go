package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// Ownership model:
//   - PostgresStore does NOT own the pgx pool. The caller must close the pool.
//   - Close() is therefore a no-op.
//
// Data model: one row per session; the order ledger lives in a JSONB column
// and is replaced atomically on Update. The ledger is small (one entry per
// participant of one group order), so whole-aggregate replacement is cheaper
// than row-per-order bookkeeping and keeps Update a single statement.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures PostgresStore behavior.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the DB schema used by this store (default: "splitbite").
// The schema name is validated and safely quoted in queries.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("session: empty schema")
		}
		if !isValidPGIdent(schema) {
			return errors.New("session: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a Postgres-backed Store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "splitbite",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("session: nil pool")
	}
	return st, nil
}

// Close is a no-op because the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

const sessionColumns = `id, host_id, host_name, host_payment_target, delivery_fee, deadline, restaurant_ref, status, orders, created_at`

// Create inserts a new session row.
func (s *PostgresStore) Create(ctx context.Context, sess *Session) error {
	if s == nil || s.pool == nil {
		return errors.New("session: nil store")
	}
	if sess == nil || sess.ID == "" {
		return errors.New("invalid session")
	}

	ledger, err := json.Marshal(sess.Orders)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	sessions := pgIdent(s.schema, "sessions")
	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+sessions+` (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sess.ID, sess.HostID, sess.HostName, sess.HostPaymentTarget,
		sess.DeliveryFee, nullableTime(sess.Deadline), sess.RestaurantRef,
		string(sess.Status), ledger, sess.CreatedAt,
	)
	return err
}

// Get fetches one session row or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("session: nil store")
	}

	sessions := pgIdent(s.schema, "sessions")
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM `+sessions+` WHERE id = $1`, id)

	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Update replaces the whole aggregate for one session row.
func (s *PostgresStore) Update(ctx context.Context, sess *Session) error {
	if s == nil || s.pool == nil {
		return errors.New("session: nil store")
	}
	if sess == nil || sess.ID == "" {
		return errors.New("invalid session")
	}

	ledger, err := json.Marshal(sess.Orders)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	sessions := pgIdent(s.schema, "sessions")
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+sessions+`
		    SET delivery_fee = $2, deadline = $3, restaurant_ref = $4, status = $5, orders = $6
		  WHERE id = $1`,
		sess.ID, sess.DeliveryFee, nullableTime(sess.Deadline),
		sess.RestaurantRef, string(sess.Status), ledger,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one session row.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.pool == nil {
		return errors.New("session: nil store")
	}

	sessions := pgIdent(s.schema, "sessions")
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+sessions+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFor returns summaries of sessions hosted by identity or containing an
// order with its participant id, newest first. The participant match uses
// JSONB containment against the ledger column.
func (s *PostgresStore) ListFor(ctx context.Context, identity string) ([]Summary, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("session: nil store")
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, nil
	}

	member, err := json.Marshal([]map[string]string{{"participant_id": identity}})
	if err != nil {
		return nil, err
	}

	sessions := pgIdent(s.schema, "sessions")
	rows, err := s.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		   FROM `+sessions+`
		  WHERE host_id = $1 OR orders @> $2
		  ORDER BY created_at DESC`,
		identity, member,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Sweep deletes sessions created before cutoff, independent of status.
func (s *PostgresStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.pool == nil {
		return 0, errors.New("session: nil store")
	}

	sessions := pgIdent(s.schema, "sessions")
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+sessions+` WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess     Session
		deadline *time.Time
		status   string
		ledger   []byte
	)
	if err := row.Scan(
		&sess.ID,
		&sess.HostID,
		&sess.HostName,
		&sess.HostPaymentTarget,
		&sess.DeliveryFee,
		&deadline,
		&sess.RestaurantRef,
		&status,
		&ledger,
		&sess.CreatedAt,
	); err != nil {
		return nil, err
	}

	if deadline != nil {
		sess.Deadline = *deadline
	}
	sess.Status = Status(status)
	if len(ledger) > 0 {
		if err := json.Unmarshal(ledger, &sess.Orders); err != nil {
			return nil, fmt.Errorf("decode ledger: %w", err)
		}
	}
	return &sess, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidPGIdent(s string) bool {
	return pgIdentRE.MatchString(s)
}

func pgIdent(schema, table string) string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection.
	return pgx.Identifier{schema, table}.Sanitize()
}
