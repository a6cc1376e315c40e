package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/rl1809/book-exchange/internal/core/domain"
)

type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewMySQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: MySQL, now: time.Now}
}

func NewSQLiteAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: SQLite, now: time.Now}
}

// Open connects to driver ("mysql" or "sqlite"), applies pool settings and
// creates the schema.
func Open(ctx context.Context, driver, dsn string) (*SQLAdapter, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	var adapter *SQLAdapter
	switch driver {
	case "mysql":
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		adapter = NewMySQLAdapter(db)
	case "sqlite":
		// one writer at a time; also keeps a :memory: database on a single connection
		db.SetMaxOpenConns(1)
		adapter = NewSQLiteAdapter(db)
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := adapter.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return adapter, nil
}

func (m *SQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range m.dialect.Schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", m.dialect.Name, err)
		}
	}
	return nil
}

func (m *SQLAdapter) DB() *sql.DB {
	return m.db
}

func (m *SQLAdapter) Close() error {
	return m.db.Close()
}

const exchangeColumns = `id, offered_item_id, requested_item_id, requester_id, owner_id, status, requested_at, responded_at`

func (m *SQLAdapter) CreateExchange(ctx context.Context, e domain.Exchange) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO exchanges (`+exchangeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OfferedItemID, e.RequestedItemID, e.RequesterID, e.OwnerID, string(e.Status),
		e.RequestedAt.Unix(), nullUnix(e.RespondedAt),
	)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

func (m *SQLAdapter) GetExchange(ctx context.Context, exchangeID string) (domain.Exchange, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT `+exchangeColumns+`
		FROM exchanges WHERE id = ?`, exchangeID)

	e, err := scanExchange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Exchange{}, fmt.Errorf("%w: exchange %s", domain.ErrNotFound, exchangeID)
	}
	if err != nil {
		return domain.Exchange{}, fmt.Errorf("query exchange: %w", err)
	}
	return e, nil
}

func (m *SQLAdapter) UpdateExchangeStatus(ctx context.Context, exchangeID string, from, to domain.ExchangeStatus, respondedAt *time.Time) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE exchanges
		SET status = ?, responded_at = COALESCE(?, responded_at)
		WHERE id = ? AND status = ?`,
		string(to), nullUnix(respondedAt), exchangeID, string(from),
	)
	if err != nil {
		return fmt.Errorf("update exchange: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		found, err := m.exists(ctx, `SELECT COUNT(*) FROM exchanges WHERE id = ?`, exchangeID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: exchange %s", domain.ErrNotFound, exchangeID)
		}
		return fmt.Errorf("%w: exchange %s is no longer %s", domain.ErrInvalidState, exchangeID, from)
	}
	return nil
}

func (m *SQLAdapter) ListExchangesByUser(ctx context.Context, userID string) ([]domain.Exchange, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+exchangeColumns+`
		FROM exchanges
		WHERE requester_id = ? OR owner_id = ?
		ORDER BY requested_at DESC, id`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	exchanges := []domain.Exchange{}
	for rows.Next() {
		e, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		exchanges = append(exchanges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchanges: %w", err)
	}
	return exchanges, nil
}

func (m *SQLAdapter) GetOwner(ctx context.Context, itemID string) (domain.Ownership, error) {
	var (
		o       domain.Ownership
		updated int64
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT item_id, owner_id, updated_at
		FROM ownership WHERE item_id = ?`, itemID,
	).Scan(&o.ItemID, &o.OwnerID, &updated)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Ownership{}, fmt.Errorf("%w: ownership of %s", domain.ErrNotFound, itemID)
	}
	if err != nil {
		return domain.Ownership{}, fmt.Errorf("query ownership: %w", err)
	}

	o.UpdatedAt = time.Unix(updated, 0).UTC()
	return o, nil
}

func (m *SQLAdapter) AssignOwner(ctx context.Context, itemID, ownerID string) error {
	if _, err := m.db.ExecContext(ctx, m.dialect.UpsertOwnership, itemID, ownerID, m.now().Unix()); err != nil {
		return fmt.Errorf("assign owner: %w", err)
	}
	return nil
}

// SwapOwnership locks both ownership rows (in item id order, so two swaps
// touching the same items cannot deadlock), verifies the expected owners,
// reassigns both and completes the exchange. Nothing is written unless every
// check passes.
func (m *SQLAdapter) SwapOwnership(ctx context.Context, swap domain.OwnershipSwap) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	expected := map[string]string{
		swap.OfferedItemID:   swap.RequesterID,
		swap.RequestedItemID: swap.OwnerID,
	}
	items := []string{swap.OfferedItemID, swap.RequestedItemID}
	sort.Strings(items)

	for _, itemID := range items {
		var owner string
		err := tx.QueryRowContext(ctx, `
			SELECT owner_id FROM ownership WHERE item_id = ?`+m.dialect.LockClause, itemID,
		).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: item %s has no owner", domain.ErrOwnershipMismatch, itemID)
		}
		if err != nil {
			return fmt.Errorf("lock ownership: %w", err)
		}
		if owner != expected[itemID] {
			return fmt.Errorf("%w: item %s is owned by %s, expected %s",
				domain.ErrOwnershipMismatch, itemID, owner, expected[itemID])
		}
	}

	updatedAt := m.now().Unix()
	reassign := []struct{ itemID, from, to string }{
		{swap.OfferedItemID, swap.RequesterID, swap.OwnerID},
		{swap.RequestedItemID, swap.OwnerID, swap.RequesterID},
	}
	for _, r := range reassign {
		result, err := tx.ExecContext(ctx, `
			UPDATE ownership
			SET owner_id = ?, updated_at = ?
			WHERE item_id = ? AND owner_id = ?`,
			r.to, updatedAt, r.itemID, r.from,
		)
		if err != nil {
			return fmt.Errorf("update ownership: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("%w: item %s changed hands during transfer", domain.ErrOwnershipMismatch, r.itemID)
		}
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE exchanges SET status = ?
		WHERE id = ? AND status = ?`,
		string(domain.ExchangeStatusCompleted), swap.ExchangeID, string(domain.ExchangeStatusAccepted),
	)
	if err != nil {
		return fmt.Errorf("complete exchange: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: exchange %s is not accepted", domain.ErrInvalidState, swap.ExchangeID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}
	return nil
}

func (m *SQLAdapter) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var count int
	if err := m.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("count rows: %w", err)
	}
	return count > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExchange(row rowScanner) (domain.Exchange, error) {
	var (
		e           domain.Exchange
		status      string
		requestedAt int64
		respondedAt sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.OfferedItemID, &e.RequestedItemID, &e.RequesterID, &e.OwnerID,
		&status, &requestedAt, &respondedAt)
	if err != nil {
		return domain.Exchange{}, err
	}

	e.Status = domain.ExchangeStatus(status)
	e.RequestedAt = time.Unix(requestedAt, 0).UTC()
	if respondedAt.Valid {
		t := time.Unix(respondedAt.Int64, 0).UTC()
		e.RespondedAt = &t
	}
	return e, nil
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
