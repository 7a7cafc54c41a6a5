package main

import (
	"context"
	"testing"
	"time"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	cfg := testutil.TestConfig()
	cfg.DatabaseURL = testDB.DSN
	cfg.DenylistRetention = time.Hour
	now := time.Now()

	rows := []*domain.BlockedToken{
		{JTI: "long-expired", ExpiresAt: now.Add(-3 * time.Hour)},
		{JTI: "within-retention", ExpiresAt: now.Add(-30 * time.Minute)},
		{JTI: "live", ExpiresAt: now.Add(time.Hour)},
	}
	require.NoError(t, testDB.DB.Create(rows).Error)

	require.NoError(t, run(context.Background(), cfg, now))

	var left []string
	require.NoError(t, testDB.DB.Model(&domain.BlockedToken{}).Order("jti").Pluck("jti", &left).Error)
	assert.Equal(t, []string{"live", "within-retention"}, left)
}

func TestRun_Errors(t *testing.T) {
	t.Run("purge failure is returned", func(t *testing.T) {
		testDB := testutil.NewTestDB(t)
		cfg := testutil.TestConfig()
		cfg.DatabaseURL = testDB.DSN

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, run(ctx, cfg, time.Now()))
	})

	t.Run("unreachable database", func(t *testing.T) {
		cfg := testutil.TestConfig()
		cfg.DatabaseURL = "host=127.0.0.1 port=1 user=nobody dbname=none sslmode=disable connect_timeout=1"

		err := run(context.Background(), cfg, time.Now())
		assert.ErrorContains(t, err, "connect to database")
	})
}
