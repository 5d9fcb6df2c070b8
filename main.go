package main

import (
	"os"

	"devblog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
