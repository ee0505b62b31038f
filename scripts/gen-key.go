package main

import (
	"fmt"
	"os"

	"github.com/Mynotaurus/gostreaming/internal/util"
)

// Prints a fresh stream key for registering a new streamer row.
func main() {
	key, err := util.GenerateStreamKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(key)
}
