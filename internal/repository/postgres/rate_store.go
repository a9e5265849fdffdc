package postgres

import (
	"context"
	"errors"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/domain"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RateStore - хранилище последних курсов и отметки обновления (таблицы rates и refresh_stamp).
type RateStore struct {
	db *pgxpool.Pool
}

// NewRateStore - Создаёт хранилище курсов на основе пула соединений.
func NewRateStore(db *pgxpool.Pool) *RateStore {
	return &RateStore{db: db}
}

// ReadStamp - Отметка последнего обновления; Present=false, если кэш ни разу не заполнялся.
func (r *RateStore) ReadStamp(ctx context.Context) (domain.RefreshStamp, error) {
	const query = `SELECT last_request FROM refresh_stamp WHERE id = 1`

	var millis int64
	err := r.db.QueryRow(ctx, query).Scan(&millis)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RefreshStamp{}, nil
	}
	if err != nil {
		return domain.RefreshStamp{}, repository.Wrap("read stamp", err)
	}
	return domain.RefreshStamp{LastRequestMillis: millis, Present: true}, nil
}

// ReadAll - Все сохранённые курсы.
func (r *RateStore) ReadAll(ctx context.Context) (map[string]float64, error) {
	const query = `SELECT currency, rate FROM rates`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, repository.Wrap("read all", err)
	}
	return collectRates(rows, "read all")
}

// ReadSubset - Курсы только для запрошенных кодов; отсутствующие коды просто не попадают в результат.
func (r *RateStore) ReadSubset(ctx context.Context, codes []string) (map[string]float64, error) {
	if len(codes) == 0 {
		return map[string]float64{}, nil
	}
	const query = `SELECT currency, rate FROM rates WHERE currency = ANY($1)`

	rows, err := r.db.Query(ctx, query, codes)
	if err != nil {
		return nil, repository.Wrap("read subset", err)
	}
	return collectRates(rows, "read subset")
}

// ReplaceAll - Полностью заменяет набор курсов и ставит отметку atMillis в одной транзакции.
// Читатели видят либо старое, либо новое состояние целиком.
func (r *RateStore) ReplaceAll(ctx context.Context, rates map[string]float64, atMillis int64) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return repository.Wrap("begin replace", err)
	}
	defer tx.Rollback(ctx)

	// EXCLUSIVE не блокирует обычные SELECT, но выстраивает писателей в очередь
	if _, err := tx.Exec(ctx, `LOCK TABLE rates IN EXCLUSIVE MODE`); err != nil {
		return repository.Wrap("lock rates", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM rates`); err != nil {
		return repository.Wrap("clear rates", err)
	}

	rows := make([][]any, 0, len(rates))
	for currency, rate := range rates {
		rows = append(rows, []any{currency, rate})
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"rates"}, []string{"currency", "rate"}, pgx.CopyFromRows(rows)); err != nil {
		return repository.Wrap("insert rates", err)
	}

	const stampQuery = `
		INSERT INTO refresh_stamp (id, last_request)
		VALUES (1, $1)
		ON CONFLICT (id)
		DO UPDATE SET last_request = EXCLUDED.last_request
	`
	if _, err := tx.Exec(ctx, stampQuery, atMillis); err != nil {
		return repository.Wrap("write stamp", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return repository.Wrap("commit replace", err)
	}
	return nil
}

func collectRates(rows pgx.Rows, op string) (map[string]float64, error) {
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var (
			currency string
			rate     float64
		)
		if err := rows.Scan(&currency, &rate); err != nil {
			return nil, repository.Wrap(op, err)
		}
		out[currency] = rate
	}
	if err := rows.Err(); err != nil {
		return nil, repository.Wrap(op, err)
	}
	return out, nil
}
