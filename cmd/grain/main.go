package main

import (
	"os"

	"github.com/mostlycached/grain/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
