package main

import (
	"os"

	"appliance-backup/src/cli"
)

func main() {
	os.Exit(cli.Execute())
}
