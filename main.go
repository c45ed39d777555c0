// Package main is the entry point for the skill-updater CLI application.
//
// skill-updater keeps the skills installed under $CODEX_HOME/skills in sync
// with their upstream sources, with backup and rollback on every change.
package main

import "github.com/femon07/codex-skill-updater/cmd"

// main delegates all command parsing and execution to the cmd package.
func main() {
	cmd.Execute()
}
