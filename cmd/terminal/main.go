// Command terminal runs the seat-update relay or follows it from a
// booking terminal.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
