package main

import (
	"github.com/joho/godotenv"

	"github.com/kayz/inkwright/cmd"
)

// Build is set via ldflags at build time
var Build = "unknown"

func main() {
	// Optional .env in the working directory; absence is not an error.
	_ = godotenv.Load()

	cmd.SetBuild(Build)
	cmd.Execute()
}
