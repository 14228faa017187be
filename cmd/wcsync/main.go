package main

import (
	"os"

	"github.com/mytua/wcsync/cmd/wcsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
