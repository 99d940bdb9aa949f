// Package main is the entrypoint for the ckan command: it invokes CKAN actions
// directly or through the action gateway, runs the gateway, and manages the
// audit database.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
