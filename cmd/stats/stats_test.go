package stats

import (
	"bytes"
	"context"
	"testing"

	"github.com/PeterGeers/myAdmin-sub005/cmd/root"
	"github.com/PeterGeers/myAdmin-sub005/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestStatsCommand(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverMemory
	cfg.Log.Level = "error"
	root.AppConfig = cfg
	root.SharedFlags = root.CommonFlags{Tenants: []string{"Globex", "Acme"}}
	showEntries = true

	var buf bytes.Buffer
	Cmd.SetOut(&buf)
	Cmd.SetContext(context.Background())
	t.Cleanup(func() {
		root.AppConfig = nil
		root.SharedFlags = root.CommonFlags{}
		showEntries = false
		Cmd.SetOut(nil)
	})

	require.NoError(t, statsFunc(Cmd, nil))

	var report struct {
		Stats struct {
			HitRatePercent   float64  `yaml:"hit_rate_percent"`
			MemoryEntries    int      `yaml:"memory_entries"`
			PopulatedTenants []string `yaml:"populated_tenants"`
		} `yaml:"stats"`
		Entries []map[string]interface{} `yaml:"entries"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &report))

	assert.Equal(t, []string{"Acme", "Globex"}, report.Stats.PopulatedTenants)
	assert.Equal(t, 4, report.Stats.MemoryEntries)
	assert.Equal(t, 0.0, report.Stats.HitRatePercent)
	assert.Len(t, report.Entries, 4)
	for _, e := range report.Entries {
		assert.Equal(t, "populated", e["state"])
	}
}
