// Package stats warms the caches and reports their statistics
package stats

import (
	"time"

	"github.com/PeterGeers/myAdmin-sub005/cmd/common"
	"github.com/PeterGeers/myAdmin-sub005/cmd/root"
	"github.com/PeterGeers/myAdmin-sub005/internal/cache"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"

	"github.com/spf13/cobra"
)

var showEntries bool

// Report is what the stats command prints.
type Report struct {
	WarmupMillis int64             `yaml:"warmup_ms"`
	Stats        models.CacheStats `yaml:"stats"`
	Entries      []cache.EntryInfo `yaml:"entries,omitempty"`
}

// Cmd represents the stats command
var Cmd = &cobra.Command{
	Use:   "stats",
	Short: "Warm the caches for the given administrations and print cache statistics",
	Long: `Stats populates the pattern and aggregate caches of every --tenant
administration, then prints the hit rate, the number of entries held in
memory and the populated administrations per cache.

Example:
  myadmin-patterns stats --tenant Acme --tenant Globex --entries`,
	RunE: statsFunc,
}

func init() {
	Cmd.Flags().BoolVarP(&showEntries, "entries", "e", false, "Include the state of every cache entry")
}

func statsFunc(cmd *cobra.Command, args []string) error {
	c, err := common.OpenContainer()
	if err != nil {
		return err
	}
	defer common.CloseContainer(c)

	service := c.GetService()
	start := time.Now()
	if err := service.Warm(cmd.Context(), root.SharedFlags.Tenants...); err != nil {
		root.Log.WithError(err).Warn("Cache warm-up incomplete")
	}
	elapsed := time.Since(start)
	root.Log.Debug("Cache warm-up finished",
		logging.Field{Key: logging.FieldDuration, Value: elapsed.Milliseconds()})

	report := Report{WarmupMillis: elapsed.Milliseconds(), Stats: service.CacheStats()}
	if showEntries {
		report.Entries = service.CacheEntries()
	}
	return common.WriteYAML(cmd.OutOrStdout(), report)
}
