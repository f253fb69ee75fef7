// Package root contains the root command for the application
package root

import (
	"fmt"
	"strings"

	"github.com/PeterGeers/myAdmin-sub005/internal/config"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"

	"github.com/spf13/cobra"
)

// CommonFlags represents the flags that are common to all commands
type CommonFlags struct {
	ConfigFile string
	Tenants    []string
	LogLevel   string
}

var (
	// Log is the shared logger instance for commands
	Log = logging.NewLogrusAdapter("info", "text")

	// AppConfig is the configuration loaded before any subcommand runs
	AppConfig *config.Config

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "myadmin-patterns",
		Short: "Learn account patterns from ledger history and fill in new transactions.",
		Long: `myadmin-patterns mines each administration's ledger history for recurring
counterparties, predicts the missing debit, credit and reference fields of
new bank transactions, and answers grouped aggregate queries from an
in-memory snapshot of the ledger.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to myadmin-patterns!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			AppConfig = cfg
			Log = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
			Log.Debug("Configuration loaded",
				logging.Field{Key: logging.FieldStoreDriver, Value: cfg.Store.Driver})
			return nil
		},
	}

	// SharedFlags holds the values of the persistent flags
	SharedFlags = CommonFlags{}
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.ConfigFile, "config", "c", "", "Config file (default: config.yaml in $HOME/.myadmin, .myadmin or .)")
	Cmd.PersistentFlags().StringSliceVarP(&SharedFlags.Tenants, "tenant", "t", nil, "Administration to work on (repeatable)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Log level override (debug, info, warn, error)")
}

// LoadConfig reads the .env file and the configuration, then applies the
// flag overrides.
func LoadConfig() (*config.Config, error) {
	config.LoadEnv()

	var (
		cfg *config.Config
		err error
	)
	if SharedFlags.ConfigFile != "" {
		cfg, err = config.InitializeConfigFromFile(SharedFlags.ConfigFile)
	} else {
		cfg, err = config.InitializeConfig()
	}
	if err != nil {
		return nil, err
	}

	if SharedFlags.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(SharedFlags.LogLevel)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	return cfg, nil
}

// Tenant returns the single administration named with --tenant.
func Tenant() (string, error) {
	switch len(SharedFlags.Tenants) {
	case 0:
		return "", fmt.Errorf("--tenant is required")
	case 1:
		return strings.TrimSpace(SharedFlags.Tenants[0]), nil
	default:
		return "", fmt.Errorf("exactly one --tenant is expected, got %d", len(SharedFlags.Tenants))
	}
}
