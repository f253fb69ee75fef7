package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/PeterGeers/myAdmin-sub005/cmd/aggregate"
	"github.com/PeterGeers/myAdmin-sub005/cmd/load"
	"github.com/PeterGeers/myAdmin-sub005/cmd/patterns"
	"github.com/PeterGeers/myAdmin-sub005/cmd/predict"
	"github.com/PeterGeers/myAdmin-sub005/cmd/root"
	"github.com/PeterGeers/myAdmin-sub005/cmd/stats"
	"github.com/PeterGeers/myAdmin-sub005/internal/config"

	"github.com/sirupsen/logrus"
)

func init() {
	// 1. Load environment variables silently first (no logging yet)
	config.LoadEnv()

	// 2. Configure the global log level before any logger is created
	configureLogLevelDirectly()

	// 3. Initialize root command
	root.Init()

	// 4. Add all subcommands
	root.Cmd.AddCommand(predict.Cmd)
	root.Cmd.AddCommand(patterns.Cmd)
	root.Cmd.AddCommand(aggregate.Cmd)
	root.Cmd.AddCommand(stats.Cmd)
	root.Cmd.AddCommand(load.Cmd)
}

// configureLogLevelDirectly sets the global logrus level from LOG_LEVEL
func configureLogLevelDirectly() {
	logLevelStr := os.Getenv("LOG_LEVEL")
	if logLevelStr == "" {
		logLevelStr = "info"
	}

	logLevel, err := logrus.ParseLevel(strings.ToLower(logLevelStr))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
