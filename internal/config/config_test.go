package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestApplyEnv_Overrides(t *testing.T) {
	cfg := Default()
	cfg.Catalog.URL = "https://from-file"
	err := cfg.ApplyEnv(envMap(map[string]string{
		"MODELRUN_CATALOG_URL":     "https://from-env",
		"MODELRUN_CATALOG_RETRIES": "3",
		"MODELRUN_FREE_MB":         "40000, 8000",
		"MODELRUN_WORKER":          "/srv/miner.py",
		"MODELRUN_INTERPRETER":     "-",
		"MODELRUN_DRY_RUN":         "yes",
		"MODELRUN_LOG_LEVEL":       "debug",
	}))
	require.NoError(t, err)
	require.Equal(t, "https://from-env", cfg.Catalog.URL)
	require.Equal(t, 3, cfg.Catalog.Retries)
	require.Equal(t, []int{40000, 8000}, cfg.Device.FreeMB)
	require.Equal(t, "/srv/miner.py", cfg.Worker.Path)
	require.Equal(t, "", cfg.Worker.Interpreter)
	require.True(t, cfg.Worker.DryRun)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestApplyEnv_BadValues(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.ApplyEnv(envMap(map[string]string{"MODELRUN_CATALOG_RETRIES": "x"})))
	require.Error(t, cfg.ApplyEnv(envMap(map[string]string{"MODELRUN_FREE_MB": "1,b"})))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.Validate(), "missing catalog url")
	require.NoError(t, cfg.ValidateLocal())

	cfg.Catalog.URL = "https://example.com/models.json"
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Catalog.Timeout = "soon"
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Planner.Rules = []RuleConfig{{Family: "", ThresholdMB: 1}}
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Catalog.Retries = -1
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Device.FreeMB = []int{-5}
	require.Error(t, bad.Validate())
}

func TestDurations(t *testing.T) {
	cfg := Default()
	require.Equal(t, "30s", cfg.CatalogTimeout().String())
	require.Equal(t, "10s", cfg.DeviceTimeout().String())
	cfg.Device.Timeout = ""
	require.Zero(t, cfg.DeviceTimeout())
}
