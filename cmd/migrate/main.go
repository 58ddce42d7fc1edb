// Command migrate applies the ingest ledger schema in db/migrations.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"njcrashes/internal/config"
)

const usage = `usage: migrate <command>

commands:
  up         apply every pending ledger migration
  down       roll the ledger back to an empty database
  steps N    move N migrations forward (or back when N < 0)
  version    print the applied migration version`

// action is one parsed invocation.
type action struct {
	name  string
	steps int
}

func parseArgs(args []string) (action, error) {
	if len(args) == 0 {
		return action{}, errors.New("no command given")
	}
	a := action{name: args[0]}
	switch a.name {
	case "up", "down", "version":
		if len(args) > 1 {
			return action{}, fmt.Errorf("%s takes no arguments", a.name)
		}
	case "steps":
		if len(args) != 2 {
			return action{}, errors.New("steps needs exactly one count")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n == 0 {
			return action{}, fmt.Errorf("steps count %q must be a non-zero integer", args[1])
		}
		a.steps = n
	default:
		return action{}, fmt.Errorf("unknown command %q", a.name)
	}
	return a, nil
}

func apply(m *migrate.Migrate, a action) error {
	var err error
	switch a.name {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		err = m.Steps(a.steps)
	case "version":
		v, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("ledger schema: no migrations applied")
			return nil
		}
		if verr != nil {
			return fmt.Errorf("reading ledger version: %w", verr)
		}
		fmt.Printf("ledger schema: version %d, dirty %t\n", v, dirty)
		return nil
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Printf("migrate %s: ledger already up to date", a.name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", a.name, err)
	}
	log.Printf("migrate %s: done", a.name)
	return nil
}

func main() {
	a, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n\n%s\n", err, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("migrate: loading config: %v", err)
	}
	m, err := migrate.New("file://db/migrations", cfg.DB.DSN())
	if err != nil {
		log.Fatalf("migrate: opening %s: %v", cfg.DB.Name, err)
	}
	defer m.Close()

	if err := apply(m, a); err != nil {
		log.Fatal(err)
	}
}
