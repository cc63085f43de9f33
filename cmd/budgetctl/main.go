/*
budgetctl - maintenance CLI for the budget database

COMMANDS:
  diagnose [--user U] [--repair]   Count data problems; --repair fixes
                                   configs first, then records
  verify   [--user U]              List every problem, change nothing
  repair   [--user U]              Run the repair passes
  ghosts   [--user U] [--yes]      List ghost records; --yes deletes them
  backfill --user U                Create missing days up to today
  pending  --user U                List days still waiting for completion

GLOBAL FLAGS:
  --config   Config file (budget.toml)
  --db       Database path
  --driver   sqlite3 (cgo) or sqlite (pure Go)
  --output   text, json or yaml
  --verbose  Log every change
*/
package main

import "os"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
