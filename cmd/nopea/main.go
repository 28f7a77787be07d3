package main

import (
	"os"

	"github.com/false-systems/nopea/cmd/nopea/cli"
)

func main() {
	os.Exit(int(cli.Run()))
}
