// Command migrate applies the database schema. Production deployments run
// it explicitly because the server does not migrate on boot there.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"gigboard/internal/config"
	"gigboard/internal/database"

	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dialector, err := database.Dialector(cfg)
	if err != nil {
		return err
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		log.Println("schema applied")
	case "status":
		for _, model := range database.PersistentModels() {
			log.Printf("%-40T table=%t", model, db.Migrator().HasTable(model))
		}
		log.Printf("env=%s auto_migrate_on_start=%t", cfg.Env, database.AutoMigrateOnStart(cfg))
	default:
		return usage()
	}
	return nil
}
