package main

import (
	"os"

	"bookingetl/cmd"
	"bookingetl/pkg/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.ExitCode(err))
	}
}
