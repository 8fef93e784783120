package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/parth-patel-1/DAU-Chatbot/cmd/daubot"
)

func main() {
	if err := daubot.Execute(); err != nil {
		if !errors.Is(err, daubot.ErrReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
