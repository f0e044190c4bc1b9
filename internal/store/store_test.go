package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	UserID string `json:"userId"`
	Value  int    `json:"value"`
}

func drivers(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	stores := map[string]Store{
		DriverMemory: NewMemoryStore(),
		DriverSQLite: sqlite,
	}
	if pg := postgresStore(t); pg != nil {
		stores[DriverPostgres] = pg
	}
	if fs := firestoreStore(t); fs != nil {
		stores[DriverFirestore] = fs
	}
	return stores
}

// postgresStore connects to DATABASE_URL and empties the documents table.
// It returns nil when no database is configured.
func postgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil
	}
	ctx := context.Background()
	pg, err := NewPostgresStore(ctx, dbURL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	_, err = pg.db.Exec(ctx, "TRUNCATE documents")
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })
	return pg
}

// firestoreStore runs against the emulator when FIRESTORE_EMULATOR_HOST is
// set. Each call uses a fresh project so runs never see each other's data.
func firestoreStore(t *testing.T) *FirestoreStore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		return nil
	}
	client, err := firestore.NewClient(context.Background(), "test-"+uuid.NewString()[:8])
	require.NoError(t, err)
	fs := NewFirestoreStore(client)
	t.Cleanup(func() { fs.Close() })
	return fs
}

func TestPostgresStoreLive(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}
	pg := postgresStore(t)
	ctx := context.Background()

	require.NoError(t, pg.Set(ctx, "users/u1/meals", "m1", counter{UserID: "u1", Value: 1}))
	var got counter
	require.NoError(t, pg.Get(ctx, "users/u1/meals", "m1", &got))
	assert.Equal(t, 1, got.Value)

	err := pg.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return &pgconn.PgError{Code: "22000"}
	})
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "22000", pgErr.Code)
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock detected", &pgconn.PgError{Code: "40P01"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped serialization failure", fmt.Errorf("failed to commit transaction: %w", &pgconn.PgError{Code: "40001"}), true},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, false},
		{"syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"not a postgres error", errors.New("connection reset"), false},
		{"not found", ErrNotFound, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isRetryable(tc.err))
		})
	}
}

func TestStoreGetSet(t *testing.T) {
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var got counter
			assert.ErrorIs(t, s.Get(ctx, "counters", "u1", &got), ErrNotFound)

			require.NoError(t, s.Set(ctx, "counters", "u1", counter{UserID: "u1", Value: 3}))
			require.NoError(t, s.Get(ctx, "counters", "u1", &got))
			assert.Equal(t, counter{UserID: "u1", Value: 3}, got)

			require.NoError(t, s.Set(ctx, "counters", "u1", counter{UserID: "u1", Value: 4}))
			require.NoError(t, s.Get(ctx, "counters", "u1", &got))
			assert.Equal(t, 4, got.Value)

			assert.NoError(t, s.Ping(ctx))
		})
	}
}

func TestStoreListNestedCollection(t *testing.T) {
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "users/u1/meals", "b", counter{Value: 2}))
			require.NoError(t, s.Set(ctx, "users/u1/meals", "a", counter{Value: 1}))
			require.NoError(t, s.Set(ctx, "users/u2/meals", "c", counter{Value: 9}))

			docs, err := s.List(ctx, "users/u1/meals")
			require.NoError(t, err)
			require.Len(t, docs, 2)
			assert.Equal(t, "a", docs[0].ID)

			var c counter
			require.NoError(t, docs[1].DataTo(&c))
			assert.Equal(t, 2, c.Value)

			docs, err = s.List(ctx, "users/u3/meals")
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestStoreTransactionIsAllOrNothing(t *testing.T) {
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "a", "1", counter{Value: 1}))

			boom := errors.New("boom")
			err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
				if err := tx.Set("a", "1", counter{Value: 100}); err != nil {
					return err
				}
				if err := tx.Set("b", "1", counter{Value: 100}); err != nil {
					return err
				}
				return boom
			})
			assert.ErrorIs(t, err, boom)

			var got counter
			require.NoError(t, s.Get(ctx, "a", "1", &got))
			assert.Equal(t, 1, got.Value)
			assert.ErrorIs(t, s.Get(ctx, "b", "1", &got), ErrNotFound)
		})
	}
}

func TestStoreTransactionSerializesReadModifyWrite(t *testing.T) {
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			if name == DriverFirestore {
				t.Skip("emulator contention exceeds the client's transaction retry budget")
			}
			ctx := context.Background()
			const workers = 25

			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
						var c counter
						if err := tx.Get("counters", "u1", &c); err != nil && !errors.Is(err, ErrNotFound) {
							return err
						}
						c.Value++
						return tx.Set("counters", "u1", c)
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			var got counter
			require.NoError(t, s.Get(ctx, "counters", "u1", &got))
			assert.Equal(t, workers, got.Value)
		})
	}
}

func TestMemoryTransactionReadsOwnWrites(t *testing.T) {
	s := NewMemoryStore()
	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.Set("a", "1", counter{Value: 7}))
		var c counter
		require.NoError(t, tx.Get("a", "1", &c))
		assert.Equal(t, 7, c.Value)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryTransactionHonoursCancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
