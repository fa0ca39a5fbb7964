// Package main implements the pyscan binary. It is the only
// public-facing entry point to pyscan, since its Go packages are all
// internal.
package main

import "github.com/replit/pyscan/internal/cli"

// Main entry point for the pyscan binary.
func main() {
	cli.DoCLI()
}
