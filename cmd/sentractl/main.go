// sentractl - command-line client for the Sentra home-security portal.
//
// Thin wrapper over the sentra library: list and inspect devices, watch
// the live event stream, and issue panel commands from a terminal. State
// lives at the vendor; sentractl holds nothing between invocations.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
