package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "medierp-ledger", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "ledger", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 200*time.Millisecond, cfg.Database.SlowQuery)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 100, cfg.Event.BatchSize)
	assert.True(t, cfg.Settlement.DischargeBlockThreshold.Equal(decimal.RequireFromString("0.001")))
	assert.Equal(t, "IQD", cfg.Settlement.DefaultCurrency)
	assert.Equal(t, 200, cfg.Settlement.WorklistLimit)
	assert.Equal(t, 10*time.Minute, cfg.Depreciation.LockTTL)
	assert.False(t, cfg.Depreciation.ScheduleEnabled)
	assert.Equal(t, time.Minute, cfg.Depreciation.CheckInterval)
	assert.Equal(t, cfg.App.Name, cfg.Telemetry.ServiceName)
	assert.False(t, cfg.Telemetry.LogsEnabled)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, "ledger-archive", cfg.Storage.Bucket)
	assert.Equal(t, 15*time.Minute, cfg.Storage.PresignExpiration)
	assert.False(t, cfg.Printing.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Printing.Timeout)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LEDGER_APP_PORT", "9000")
	t.Setenv("LEDGER_DATABASE_HOST", "db.internal")
	t.Setenv("LEDGER_DATABASE_PORT", "5433")
	t.Setenv("LEDGER_REDIS_ENABLED", "true")
	t.Setenv("LEDGER_SETTLEMENT_DISCHARGE_BLOCK_THRESHOLD", "1000.50")
	t.Setenv("LEDGER_SETTLEMENT_DEFAULT_CURRENCY", "USD")
	t.Setenv("LEDGER_DEPRECIATION_LOCK_ENABLED", "true")
	t.Setenv("LEDGER_DEPRECIATION_LOCK_TTL", "90s")
	t.Setenv("LEDGER_DEPRECIATION_SCHEDULE_ENABLED", "true")
	t.Setenv("LEDGER_DEPRECIATION_SCHEDULE_HOUR", "2")
	t.Setenv("LEDGER_DEPRECIATION_SCHEDULE_MINUTE", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Settlement.DischargeBlockThreshold.Equal(decimal.RequireFromString("1000.50")))
	assert.Equal(t, "USD", cfg.Settlement.DefaultCurrency)
	assert.True(t, cfg.Depreciation.LockEnabled)
	assert.Equal(t, 90*time.Second, cfg.Depreciation.LockTTL)
	assert.True(t, cfg.Depreciation.ScheduleEnabled)
	assert.Equal(t, 2, cfg.Depreciation.ScheduleHour)
	assert.Equal(t, 30, cfg.Depreciation.ScheduleMinute)
}

func TestLoadFrom_TOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[app]
name = "ledger-test"

[settlement]
discharge_block_threshold = "250"
worklist_limit = 50

[event]
poll_interval = "2s"

[printing]
enabled = true
chrome_url = "ws://chrome:9222"
receipt_title = "RS Sehat"
`), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "ledger-test", cfg.App.Name)
	assert.True(t, cfg.Settlement.DischargeBlockThreshold.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, 50, cfg.Settlement.WorklistLimit)
	assert.Equal(t, 2*time.Second, cfg.Event.PollInterval)
	assert.True(t, cfg.Printing.Enabled)
	assert.Equal(t, "ws://chrome:9222", cfg.Printing.ChromeURL)
	assert.Equal(t, "RS Sehat", cfg.Printing.ReceiptTitle)
}

func TestLoad_Rejections(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{
			name: "bad threshold",
			env:  map[string]string{"LEDGER_SETTLEMENT_DISCHARGE_BLOCK_THRESHOLD": "ten"},
			msg:  "settlement.discharge_block_threshold",
		},
		{
			name: "negative threshold",
			env:  map[string]string{"LEDGER_SETTLEMENT_DISCHARGE_BLOCK_THRESHOLD": "-1"},
			msg:  "cannot be negative",
		},
		{
			name: "lock without redis",
			env:  map[string]string{"LEDGER_DEPRECIATION_LOCK_ENABLED": "true"},
			msg:  "requires redis.enabled",
		},
		{
			name: "schedule hour out of range",
			env:  map[string]string{"LEDGER_DEPRECIATION_SCHEDULE_HOUR": "24"},
			msg:  "depreciation.schedule_hour",
		},
		{
			name: "storage without credentials",
			env:  map[string]string{"LEDGER_STORAGE_ENABLED": "true", "LEDGER_STORAGE_ACCESS_KEY": "ledger"},
			msg:  "storage.secret_key",
		},
		{
			name: "idle above open",
			env:  map[string]string{"LEDGER_DATABASE_MAX_OPEN_CONNS": "2", "LEDGER_DATABASE_MAX_IDLE_CONNS": "3"},
			msg:  "cannot exceed",
		},
		{
			name: "weak production secret",
			env:  map[string]string{"LEDGER_APP_ENV": "production", "LEDGER_JWT_SECRET": "short"},
			msg:  "jwt.secret",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestDatabaseConfig_DSNEscapesPassword(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "ledger", Password: "p@ss/word", DBName: "ledger", SSLMode: "require"}
	assert.Equal(t, "postgres://ledger:p%40ss%2Fword@db:5432/ledger?sslmode=require", d.DSN())
}
