package main

import (
	"os"

	"github.com/bazaarlabs/bazaar/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
