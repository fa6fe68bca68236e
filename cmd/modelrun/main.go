package main

import (
	"os"

	"modelrun/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
