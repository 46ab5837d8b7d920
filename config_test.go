package taskgate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	location := filepath.Join(dir, "taskgate.yaml")
	require.NoError(t, os.WriteFile(location, []byte(`
logger:
  level: debug
orchestrator:
  workers: 4
  pollingInterval: 250ms
storage:
  backend: fs
  baseURL: `+dir+`
notifier:
  providers: [log]
http:
  addr: ":9090"
`), 0o644))

	testCases := []struct {
		name     string
		location string
		env      map[string]string
		expect   func(t *testing.T, cfg *Config)
		expectErr bool
	}{
		{
			name: "defaults",
			expect: func(t *testing.T, cfg *Config) {
				assert.Equal(t, BackendMemory, cfg.Storage.Backend)
				assert.Equal(t, 1, cfg.Orchestrator.Workers)
				assert.Equal(t, ":8080", cfg.HTTP.Addr)
				assert.Equal(t, []string{"log"}, cfg.Notifier.Providers)
			},
		},
		{
			name:     "yaml over defaults",
			location: location,
			expect: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logger.Level)
				assert.Equal(t, 4, cfg.Orchestrator.Workers)
				assert.Equal(t, 250*time.Millisecond, cfg.Orchestrator.PollingInterval)
				assert.Equal(t, 5*time.Minute, cfg.Orchestrator.ExecutionTimeout)
				assert.Equal(t, BackendFS, cfg.Storage.Backend)
				assert.Equal(t, ":9090", cfg.HTTP.Addr)
			},
		},
		{
			name:     "env over yaml",
			location: location,
			env: map[string]string{
				"TASKGATE_WORKERS":   "8",
				"TASKGATE_HTTP_ADDR": ":7070",
				"TASKGATE_NOTIFIERS": "log, nats",
				"TASKGATE_NATS_URL":  "nats://localhost:4222",
			},
			expect: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8, cfg.Orchestrator.Workers)
				assert.Equal(t, ":7070", cfg.HTTP.Addr)
				assert.Equal(t, []string{"log", "nats"}, cfg.Notifier.Providers)
				assert.Equal(t, "nats://localhost:4222", cfg.Notifier.NATS.URL)
			},
		},
		{
			name:     "malformed env",
			env:      map[string]string{"TASKGATE_POLLING_INTERVAL": "soon"},
			expectErr: true,
		},
		{
			name:     "invalid backend",
			env:      map[string]string{"TASKGATE_STORAGE_BACKEND": "redis"},
			expectErr: true,
		},
		{
			name:     "missing file",
			location: filepath.Join(dir, "missing.yaml"),
			expectErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadConfig(context.Background(), tc.location)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.expect(t, cfg)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(cfg *Config)
		valid  bool
	}{
		{name: "default", mutate: func(*Config) {}, valid: true},
		{name: "fs without base url", mutate: func(cfg *Config) { cfg.Storage.Backend = BackendFS }},
		{name: "postgres without dsn", mutate: func(cfg *Config) {
			cfg.Storage.Backend = BackendPostgres
			cfg.Storage.BaseURL = "/tmp/taskgate"
		}},
		{name: "fs outbox without base url", mutate: func(cfg *Config) { cfg.Notifier.Outbox = BackendFS }},
		{name: "otlp without endpoint", mutate: func(cfg *Config) {
			cfg.Tracing.Enabled = true
			cfg.Tracing.Exporter = ExporterOTLP
		}},
		{name: "zero workers", mutate: func(cfg *Config) { cfg.Orchestrator.Workers = 0 }},
		{name: "empty addr", mutate: func(cfg *Config) { cfg.HTTP.Addr = "" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
