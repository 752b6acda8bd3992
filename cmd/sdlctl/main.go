package main

import (
	"fmt"
	"os"

	"github.com/sdlctl/sdlctl/internal/logging"
)

func main() {
	logger := logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.InfoLevel,
	})

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command execution failed", map[string]interface{}{
			"error": err.Error(),
		})
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
