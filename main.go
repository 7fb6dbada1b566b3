package main

import (
	"os"

	"github.com/gridsched/revs/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
