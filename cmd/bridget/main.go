package main

import (
	"os"

	"github.com/PeterJemley/bridget-sub000/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
