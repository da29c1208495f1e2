package main

import (
	"os"

	"github.com/cinestream/cinestream/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
