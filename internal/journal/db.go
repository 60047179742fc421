package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/widesurf/hft-sync/internal/model"
)

const (
	_schema = `CREATE TABLE IF NOT EXISTS executions (
								order_id        TEXT NOT NULL,
								client_order_id TEXT NOT NULL DEFAULT '',
								symbol          TEXT NOT NULL,
								side            TEXT NOT NULL,
								quantity        DOUBLE PRECISION NOT NULL,
								price           DOUBLE PRECISION NOT NULL,
								status          TEXT NOT NULL,
								executed_at     TIMESTAMPTZ NOT NULL,
								PRIMARY KEY (order_id, executed_at)
							);
							CREATE TABLE IF NOT EXISTS account_snapshots (
								id             BIGSERIAL PRIMARY KEY,
								cash           DOUBLE PRECISION NOT NULL,
								equity         DOUBLE PRECISION NOT NULL,
								buying_power   DOUBLE PRECISION NOT NULL,
								status         TEXT NOT NULL,
								daytrade_count INTEGER NOT NULL,
								recorded_at    TIMESTAMPTZ NOT NULL
							);`

	_insertExecution = `INSERT INTO executions (
								order_id,
								client_order_id,
								symbol,
								side,
								quantity,
								price,
								status,
								executed_at
							) VALUES (:order_id, :client_order_id, :symbol, :side, :quantity, :price, :status, :executed_at)
							ON CONFLICT (order_id, executed_at) DO NOTHING`

	_insertAccountSnapshot = `INSERT INTO account_snapshots (
								cash, equity, buying_power, status, daytrade_count, recorded_at
							) VALUES (:cash, :equity, :buying_power, :status, :daytrade_count, :recorded_at)`
)

type executionRow struct {
	OrderID       string    `db:"order_id"`
	ClientOrderID string    `db:"client_order_id"`
	Symbol        string    `db:"symbol"`
	Side          string    `db:"side"`
	Quantity      float64   `db:"quantity"`
	Price         float64   `db:"price"`
	Status        string    `db:"status"`
	ExecutedAt    time.Time `db:"executed_at"`
}

func newExecutionRow(e model.Execution, fallback time.Time) executionRow {
	at := e.Timestamp.Time
	if at.IsZero() {
		at = fallback
	}
	return executionRow{
		OrderID:       e.OrderID,
		ClientOrderID: e.ClientOrderID,
		Symbol:        e.Symbol,
		Side:          string(e.Side),
		Quantity:      e.Quantity,
		Price:         e.Price,
		Status:        string(e.Status),
		ExecutedAt:    at.UTC(),
	}
}

func (r executionRow) key() string {
	return fmt.Sprintf("%s|%d", r.OrderID, r.ExecutedAt.UnixNano())
}

type accountRow struct {
	Cash          float64   `db:"cash"`
	Equity        float64   `db:"equity"`
	BuyingPower   float64   `db:"buying_power"`
	Status        string    `db:"status"`
	DaytradeCount int       `db:"daytrade_count"`
	RecordedAt    time.Time `db:"recorded_at"`
}

func (j *Journal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, _schema); err != nil {
		return fmt.Errorf("%w: can't create journal tables", err)
	}
	return nil
}

// Flush writes executions not yet journaled and the account snapshot when
// it changed since the last flush. Nothing is marked written unless the
// transaction commits.
func (j *Journal) Flush(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	var rows []executionRow
	for _, e := range j.store.ExecutionFeed() {
		if e.OrderID == "" {
			continue
		}
		row := newExecutionRow(e, now)
		if _, done := j.written[row.key()]; !done {
			rows = append(rows, row)
		}
	}

	account, hasAccount := j.store.Account()
	writeAccount := hasAccount && (j.lastAccount == nil || *j.lastAccount != account)

	if len(rows) == 0 && !writeAccount {
		return nil
	}

	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: can't begin journal transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, _insertExecution, row); err != nil {
			return fmt.Errorf("%w: can't insert execution %s", err, row.OrderID)
		}
	}

	if writeAccount {
		if _, err := tx.NamedExecContext(ctx, _insertAccountSnapshot, accountRow{
			Cash:          account.Cash,
			Equity:        account.Equity,
			BuyingPower:   account.BuyingPower,
			Status:        account.Status,
			DaytradeCount: account.DaytradeCount,
			RecordedAt:    now.UTC(),
		}); err != nil {
			return fmt.Errorf("%w: can't insert account snapshot", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: can't commit journal", err)
	}

	for _, row := range rows {
		j.written[row.key()] = struct{}{}
	}
	if writeAccount {
		j.lastAccount = &account
	}
	j.logger.Debugf("journaled %d executions, account snapshot %t", len(rows), writeAccount)
	return nil
}
