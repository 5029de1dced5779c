package main

import (
	"os"

	"github.com/ru-digital/product-estimator/cmd/estimatorctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
