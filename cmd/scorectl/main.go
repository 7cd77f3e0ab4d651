// Command scorectl records an evaluation result from inside a harness run.
// The harness invokes it once per task after computing accuracies:
//
//	scorectl -task badnets -clean 0.9132 -attack 0.8418
//
// The database path and the student identity come from the MLGRADER_DB and
// MLGRADER_IDENTITY environment variables set by the evaluation worker.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"mlgrader/internal/common/db"
	"mlgrader/internal/store"
)

func main() {
	task := flag.String("task", "", "Task name (badnets or lira)")
	clean := flag.Float64("clean", -1, "Accuracy without attack")
	attack := flag.Float64("attack", -1, "Accuracy with attack")
	flag.Parse()

	if err := run(*task, *clean, *attack); err != nil {
		fmt.Fprintf(os.Stderr, "scorectl: %v\n", err)
		os.Exit(1)
	}
}

func run(task string, clean, attack float64) error {
	if task == "" {
		return fmt.Errorf("-task is required")
	}
	if clean < 0 || clean > 1 || attack < 0 || attack > 1 {
		return fmt.Errorf("scores must be within [0, 1]")
	}

	dbPath := os.Getenv("MLGRADER_DB")
	if dbPath == "" {
		return fmt.Errorf("MLGRADER_DB is not set")
	}
	identity, err := strconv.ParseInt(os.Getenv("MLGRADER_IDENTITY"), 10, 64)
	if err != nil {
		return fmt.Errorf("MLGRADER_IDENTITY is not a valid integer")
	}

	sqliteDB, err := db.NewSQLite(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqliteDB.Close()
	}()

	jobStore, err := store.NewStore(context.Background(), sqliteDB, store.RankDescending)
	if err != nil {
		return err
	}
	return jobStore.Complete(context.Background(), identity, store.Task(task), clean, attack)
}
