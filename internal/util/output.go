package util

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/replit/pyscan/internal/config"
)

var (
	errorPrefix    = color.New(color.FgRed, color.Bold).Sprint("error:")
	progressPrefix = color.New(color.FgCyan).Sprint("-->")
)

// Die is like fmt.Printf, but writes to stderr, adds a newline, and
// terminates the process.
func Die(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, errorPrefix+" "+format+"\n", a...)
	os.Exit(1)
}

// Panicf is a composition of fmt.Sprintf and panic.
func Panicf(format string, a ...interface{}) {
	panic(fmt.Sprintf(format, a...))
}

// Log writes a line to stderr unless --quiet was passed.
func Log(format string, a ...interface{}) {
	if !config.Quiet {
		fmt.Fprintf(os.Stderr, format+"\n", a...)
	}
}

// Verbosef is like Log, but only prints when --verbose was passed.
func Verbosef(format string, a ...interface{}) {
	if config.Verbose {
		Log(format, a...)
	}
}
