// Package main is the entry point for the lf-playbook CLI binary.
package main

import (
	"os"

	cli "lf-playbook/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
