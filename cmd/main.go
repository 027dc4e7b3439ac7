package main

import (
	"os"

	"github.com/soundprediction/loregraph/cmd/loregraph"
)

func main() {
	if err := loregraph.Execute(); err != nil {
		os.Exit(1)
	}
}
