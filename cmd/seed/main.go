// Command main fills the database with demo marketplace data.
package main

import (
	"context"
	"flag"
	"log"

	"gigboard/internal/config"
	"gigboard/internal/database"
	"gigboard/internal/seed"
)

func main() {
	opts := seed.DefaultOptions
	flag.IntVar(&opts.Experts, "experts", opts.Experts, "Number of experts to create")
	flag.IntVar(&opts.Clients, "clients", opts.Clients, "Number of clients to create")
	flag.IntVar(&opts.ServicesPerExpert, "services", opts.ServicesPerExpert, "Services per expert")
	flag.IntVar(&opts.ApplicationsPerSvc, "applications", opts.ApplicationsPerSvc, "Applications per service")
	flag.BoolVar(&opts.Clean, "clean", opts.Clean, "Clean database before seeding")
	flag.Int64Var(&opts.Seed, "seed", opts.Seed, "Random seed")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	res, err := seed.NewSeeder(db, opts).Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d services, %d applications", res.Users, res.Services, res.Applications)
	log.Printf("Admin login: %s / %s (every seeded account uses the same password)", seed.AdminEmail, seed.DefaultPassword)
}
