package storage

// sqlite.go — persistencia de posiciones.
//
// Una fila por posición. El core escribe holding/failed/skipped; el
// scheduler de venta (colaborador externo) actualiza a sold cuando vence
// la ventana de hold. Prune automático al arrancar: skipped > 30 días.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/arodriguezf/hypebot/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS positions (
    id            TEXT PRIMARY KEY,
    symbol        TEXT NOT NULL,
    token_address TEXT NOT NULL,
    network_id    TEXT NOT NULL,
    amount_native REAL NOT NULL DEFAULT 0,
    buy_price     REAL NOT NULL DEFAULT 0,
    buy_tx_hash   TEXT NOT NULL DEFAULT '',
    bought_at     DATETIME NOT NULL,
    sold_at       DATETIME,
    sell_price    REAL NOT NULL DEFAULT 0,
    profit        REAL NOT NULL DEFAULT 0,
    post_text     TEXT NOT NULL DEFAULT '',
    handle        TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL,
    fail_reason   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
CREATE INDEX IF NOT EXISTS idx_positions_bought ON positions(bought_at DESC);
`

const retentionSkipped = 30 * 24 * time.Hour

// SQLiteStore implementa ports.PositionStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SavePosition inserta o reemplaza una posición.
func (s *SQLiteStore) SavePosition(ctx context.Context, p domain.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions
			(id, symbol, token_address, network_id, amount_native, buy_price,
			 buy_tx_hash, bought_at, sold_at, sell_price, profit, post_text,
			 handle, status, fail_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status      = excluded.status,
			sold_at     = excluded.sold_at,
			sell_price  = excluded.sell_price,
			profit      = excluded.profit,
			fail_reason = excluded.fail_reason`,
		p.ID, p.Symbol, p.TokenAddress, p.NetworkID, p.AmountNative, p.BuyPrice,
		p.BuyTxHash, p.BoughtAt.UTC(), nullableTime(p.SoldAt), p.SellPrice, p.Profit,
		p.PostText, p.Handle, string(p.Status), p.FailReason,
	)
	if err != nil {
		return fmt.Errorf("storage.SavePosition: %w", err)
	}
	return nil
}

// MarkSold cierra una posición con el precio de venta realizado.
func (s *SQLiteStore) MarkSold(ctx context.Context, id string, sellPrice, profit float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions
		SET status = ?, sold_at = ?, sell_price = ?, profit = ?
		WHERE id = ? AND status = ?`,
		string(domain.StatusSold), time.Now().UTC(), sellPrice, profit,
		id, string(domain.StatusHolding),
	)
	if err != nil {
		return fmt.Errorf("storage.MarkSold: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("storage.MarkSold: position %s not found or not holding", id)
	}
	return nil
}

// GetHolding devuelve las posiciones abiertas.
func (s *SQLiteStore) GetHolding(ctx context.Context) ([]domain.Position, error) {
	return s.GetPositions(ctx, domain.StatusHolding)
}

// GetPositions devuelve posiciones filtradas por status ("" = todas).
func (s *SQLiteStore) GetPositions(ctx context.Context, status domain.PositionStatus) ([]domain.Position, error) {
	query := `
		SELECT id, symbol, token_address, network_id, amount_native, buy_price,
		       buy_tx_hash, bought_at, sold_at, sell_price, profit, post_text,
		       handle, status, fail_reason
		FROM positions`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY bought_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.GetPositions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		var soldAt sql.NullTime
		var st string
		if err := rows.Scan(
			&p.ID, &p.Symbol, &p.TokenAddress, &p.NetworkID, &p.AmountNative,
			&p.BuyPrice, &p.BuyTxHash, &p.BoughtAt, &soldAt, &p.SellPrice,
			&p.Profit, &p.PostText, &p.Handle, &st, &p.FailReason,
		); err != nil {
			return nil, fmt.Errorf("storage.GetPositions: scan: %w", err)
		}
		if soldAt.Valid {
			t := soldAt.Time
			p.SoldAt = &t
		}
		p.Status = domain.PositionStatus(st)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Close cierra la conexión limpiamente.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// pruneOld borra posiciones skipped antiguas — no aportan señal histórica.
func (s *SQLiteStore) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionSkipped)
	s.db.ExecContext(ctx,
		`DELETE FROM positions WHERE status = ? AND bought_at < ?`,
		string(domain.StatusSkipped), cutoff,
	)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
