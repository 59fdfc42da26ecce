package main

import (
	"os"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
