// Command linkctl administers the link service from a shell: it runs schema
// migrations and exposes the link operations against the configured backend.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(containerServices, loadConfig).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
