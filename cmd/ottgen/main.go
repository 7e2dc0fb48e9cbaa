package main

import (
	"os"
	_ "time/tzdata"

	"github.com/timmy/ottgen/cmd/ottgen/cmd"
	"github.com/timmy/ottgen/internal/logger"
)

func main() {
	logger.SetDefaultLogger(logger.New(logger.ConfigFromEnv()))
	defer logger.Sync()

	if err := cmd.RootCmd(cmd.OpenApp).Execute(); err != nil {
		_ = logger.Sync()
		os.Exit(1)
	}
}
