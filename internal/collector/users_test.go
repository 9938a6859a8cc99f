package collector

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelotoniq/metricsd/internal/metric"
	"github.com/pelotoniq/metricsd/internal/source"
)

func newCollectorDB(t *testing.T) (*source.DB, sqlmock.Sqlmock) {
	t.Helper()
	handle, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Close() })
	return source.NewDBFromHandle(handle, time.Second), mock
}

func TestUsers_Collect(t *testing.T) {
	db, mock := newCollectorDB(t)

	for _, count := range []int{120, 560, 2100} {
		mock.ExpectQuery(`COUNT\(DISTINCT user_id\)`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
	}
	mock.ExpectQuery(`FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"source", "tier", "registrations"}).
			AddRow("web", "pro", 14).
			AddRow("mobile", "free", 33))

	c := NewUsers(db, 24*time.Hour)
	writes, err := c.Collect(context.Background())
	require.NoError(t, err)

	reg := metric.NewRegistry()
	require.NoError(t, RegisterAll(reg, []Collector{c}))
	require.NoError(t, reg.Apply(writes))

	snap := reg.Snapshot()
	assert.Equal(t, 120.0, snap.ValueOrZero("pelotoniq_active_users", "daily"))
	assert.Equal(t, 560.0, snap.ValueOrZero("pelotoniq_active_users", "weekly"))
	assert.Equal(t, 2100.0, snap.ValueOrZero("pelotoniq_active_users", "monthly"))
	assert.Equal(t, 14.0, snap.ValueOrZero("pelotoniq_user_registrations_total", "web", "pro"))
	assert.Equal(t, 33.0, snap.ValueOrZero("pelotoniq_user_registrations_total", "mobile", "free"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsers_CollectSourceFailure(t *testing.T) {
	db, mock := newCollectorDB(t)

	mock.ExpectQuery(`COUNT\(DISTINCT user_id\)`).
		WillReturnError(context.DeadlineExceeded)

	writes, err := NewUsers(db, 24*time.Hour).Collect(context.Background())
	assert.ErrorIs(t, err, source.ErrUnavailable)
	assert.Nil(t, writes)
}
