package main

import (
	"os"

	"github.com/pscheid92/agromarket/cmd/agromarket/commands"
)

func main() {
	os.Exit(commands.Execute())
}
