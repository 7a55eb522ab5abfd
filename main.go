// Package main is the entry point for the sniffer capture tool.
package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"firestige.xyz/sniffer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
