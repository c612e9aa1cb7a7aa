// cmd/dbtools/migrate/main.go
//
// Standalone migration runner for operations work. The server applies the
// embedded migrations automatically on startup, so this tool is only needed
// to roll back, inspect the schema version, or repair a dirty database.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/padelhq/clubserver/internal/db"
)

func main() {
	var (
		dbPath  = flag.String("db", "clubserver.db", "Path to SQLite database")
		command = flag.String("command", "", "Command to run (up, down, version, force)")
		target  = flag.Int("version", -1, "Target schema version for the force command")
	)
	flag.Parse()

	if *command == "" {
		flag.Usage()
		os.Exit(1)
	}

	m, err := db.NewMigrator(*dbPath)
	if err != nil {
		log.Fatalf("Migration init failed: %v", err)
	}
	defer m.Close()

	switch *command {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("Migration up failed: %v", err)
		}
	case "down":
		// One step at a time; full teardown is never what ops wants here.
		if err := m.Steps(-1); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("Migration down failed: %v", err)
		}
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("Get version failed: %v", err)
		}
		fmt.Printf("Version: %d, Dirty: %v\n", version, dirty)
	case "force":
		if *target < 0 {
			log.Fatal("force requires -version")
		}
		if err := m.Force(*target); err != nil {
			log.Fatalf("Force failed: %v", err)
		}
	default:
		log.Fatalf("Unknown command: %s", *command)
	}
}
