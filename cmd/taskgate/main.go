// Command taskgate runs the task orchestration server and offers operator
// commands for approvals and the audit trail.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
