package main

import (
	"log"
	"os"

	"tradrx/cmd/tradrx-cli/cmd"
	"tradrx/internal/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("loading .env: %v", err)
	}
	os.Exit(cmd.Execute())
}
