package postgresdb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/urlshrtload/internal/report"
	"github.com/patric-chuzhbe/urlshrtload/internal/stats"
)

func TestEndpointsInsert(t *testing.T) {
	query, args := endpointsInsert("run-1", []stats.Endpoint{
		{Method: "POST", Name: "/create", Requests: 10, Failures: 1, P50: 2 * time.Millisecond, RPS: 1.5},
		{Method: "GET", Name: "/short/[shortUrl]", Requests: 40},
	})

	assert.Contains(t, query, "($1, $2, $3, $4, $5, $6, $7, $8, $9), ($10, $11, $12, $13, $14, $15, $16, $17, $18)")
	require.Len(t, args, 18)
	assert.Equal(t, []interface{}{"run-1", "POST", "/create", int64(10), int64(1), 2.0, 0.0, 0.0, 1.5}, args[:9])
	assert.Equal(t, "GET", args[10])
}

func TestViolationsArray(t *testing.T) {
	tests := []struct {
		name       string
		violations []string
		want       string
	}{
		{name: "empty", violations: []string{}, want: "{}"},
		{name: "nil", violations: nil, want: "{}"},
		{
			name:       "quoted",
			violations: []string{`GET /short/[shortUrl]: p95 600ms > 500ms`, `say "hi" \ bye`},
			want:       `{"GET /short/[shortUrl]: p95 600ms > 500ms","say \"hi\" \\ bye"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, violationsArray(tt.violations))
		})
	}
}

// TestSaveReport needs a disposable database: TEST_DATABASE_DSN is reset before use.
func TestSaveReport(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}

	ctx := context.Background()
	db, err := New(ctx, dsn, 5*time.Second, WithDBPreReset(true))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()

	start := time.Now().UTC().Truncate(time.Millisecond)
	r := report.Report{
		ID:         uuid.NewString(),
		Profile:    "scenario",
		Host:       "http://localhost:3001",
		Mode:       report.ModeUsers,
		Users:      2,
		Start:      start,
		End:        start.Add(time.Minute),
		Violations: []string{"check success rate 0.5000 < 0.9500"},
		Summary: stats.Summary{
			Endpoints: []stats.Endpoint{{Method: "POST", Name: "/create", Requests: 3}},
			Total:     stats.Endpoint{Requests: 3},
		},
	}
	require.NoError(t, db.SaveReport(ctx, r))

	var (
		profile    string
		requests   int64
		passed     bool
		endpoints  int
		reportJSON string
	)
	err = db.database.QueryRowContext(ctx, `SELECT profile, requests, passed, report::text FROM runs WHERE id = $1`, r.ID).
		Scan(&profile, &requests, &passed, &reportJSON)
	require.NoError(t, err)
	assert.Equal(t, "scenario", profile)
	assert.Equal(t, int64(3), requests)
	assert.False(t, passed)
	assert.Contains(t, reportJSON, r.ID)

	err = db.database.QueryRowContext(ctx, `SELECT count(*) FROM run_endpoints WHERE run_id = $1`, r.ID).Scan(&endpoints)
	require.NoError(t, err)
	assert.Equal(t, 1, endpoints)

	assert.Error(t, db.SaveReport(ctx, r), "a run id is stored once")
}
