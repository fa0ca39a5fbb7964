// Package config contains global variables that are set according to
// the command line. They can be accessed from anywhere within the
// tool.
package config

// Quiet is true if --quiet was passed on the command line.
var Quiet bool

// Verbose is true if --verbose was passed on the command line. It
// enables per-entry progress output during scans.
var Verbose bool
