package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"sync"
	"testing"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/infra/db"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/repository"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/repository/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	pgSetupOnce sync.Once
	pgContainer *tcpg.PostgresContainer
	pgConnStr   string
	pgSetupErr  error
)

func TestMain(m *testing.M) {
	code := m.Run()
	if pgContainer != nil {
		_ = pgContainer.Terminate(context.Background())
	}
	os.Exit(code)
}

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	pgSetupOnce.Do(func() {
		pgContainer, pgSetupErr = tcpg.Run(ctx,
			"postgres:16-alpine",
			tcpg.WithDatabase("rates"),
			tcpg.WithUsername("postgres"),
			tcpg.WithPassword("postgres"),
			tcpg.BasicWaitStrategies(),
		)
		if pgSetupErr != nil {
			return
		}
		pgConnStr, pgSetupErr = pgContainer.ConnectionString(ctx, "sslmode=disable")
	})
	require.NoError(t, pgSetupErr)

	pool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE rates, refresh_stamp`)
	require.NoError(t, err)
	return pool
}

func TestRateStore_EmptyStamp(t *testing.T) {
	pool := setupPostgres(t)
	store := postgres.NewRateStore(pool)
	ctx := context.Background()

	stamp, err := store.ReadStamp(ctx)
	require.NoError(t, err)
	require.False(t, stamp.Present)

	all, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestRateStore_ReplaceAllRoundTrip(t *testing.T) {
	pool := setupPostgres(t)
	store := postgres.NewRateStore(pool)
	ctx := context.Background()

	require.NoError(t, store.ReplaceAll(ctx, map[string]float64{"USD": 1, "CAD": 1.35, "EUR": 0.92}, 1000))

	stamp, err := store.ReadStamp(ctx)
	require.NoError(t, err)
	require.True(t, stamp.Present)
	require.Equal(t, int64(1000), stamp.LastRequestMillis)

	// вторая замена полностью вытесняет первую
	require.NoError(t, store.ReplaceAll(ctx, map[string]float64{"USD": 1, "GBP": 0.79, "JPY": 0.79}, 2000))

	all, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"USD": 1, "GBP": 0.79, "JPY": 0.79}, all)

	stamp, err = store.ReadStamp(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2000), stamp.LastRequestMillis)

	subset, err := store.ReadSubset(ctx, []string{"GBP", "CAD"})
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"GBP": 0.79}, subset)

	empty, err := store.ReadSubset(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}

// Неудачная запись не трогает ни курсы, ни отметку
func TestRateStore_ReplaceAllRollsBack(t *testing.T) {
	pool := setupPostgres(t)
	store := postgres.NewRateStore(pool)
	ctx := context.Background()

	require.NoError(t, store.ReplaceAll(ctx, map[string]float64{"USD": 1, "CAD": 1.35}, 1000))

	// rate > 0 нарушает CHECK
	err := store.ReplaceAll(ctx, map[string]float64{"USD": 1, "BAD": -1}, 2000)
	require.Error(t, err)
	require.True(t, errors.Is(err, repository.ErrStorage))

	all, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"USD": 1, "CAD": 1.35}, all)

	stamp, err := store.ReadStamp(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1000), stamp.LastRequestMillis)
}

func TestRateStore_ClosedPoolIsStorageError(t *testing.T) {
	pool := setupPostgres(t)
	store := postgres.NewRateStore(pool)
	pool.Close()

	_, err := store.ReadAll(context.Background())
	require.Error(t, err)

	var se *repository.StorageError
	require.True(t, errors.As(err, &se))
	require.Equal(t, "read all", se.Op)
}

// Читатель видит либо старый набор целиком, либо новый
func TestRateStore_ConcurrentReadSeesWholeSet(t *testing.T) {
	pool := setupPostgres(t)
	store := postgres.NewRateStore(pool)
	ctx := context.Background()

	oldSet := map[string]float64{"USD": 1, "AAA": 2, "BBB": 3}
	newSet := map[string]float64{"USD": 1, "CCC": 4, "DDD": 5, "EEE": 6}
	require.NoError(t, store.ReplaceAll(ctx, oldSet, 1))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	bad := make(chan string, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			got, err := store.ReadAll(ctx)
			if err != nil {
				bad <- "read failed: " + err.Error()
				return
			}
			if !maps.Equal(got, oldSet) && !maps.Equal(got, newSet) {
				bad <- fmt.Sprintf("observed partial state: %v", got)
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		set := oldSet
		if i%2 == 0 {
			set = newSet
		}
		require.NoError(t, store.ReplaceAll(ctx, set, int64(i+2)))
	}
	close(stop)
	wg.Wait()

	select {
	case msg := <-bad:
		t.Fatal(msg)
	default:
	}
}
