package main

import (
	"github.com/joho/godotenv"

	"github.com/cordonsoft/accountreview/cmd/accountreview/cmd"
)

func main() {
	// Load .env if present so ${VAR} substitution in the config file can
	// pick up credentials without exporting them in the shell.
	_ = godotenv.Load()

	cmd.Execute()
}
