package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"safetyrag/internal/cli"
)

var version = "dev"

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	if err := cli.Run(context.Background(), os.Args, version); err != nil {
		os.Exit(1)
	}
}
