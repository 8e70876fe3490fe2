package main

import (
	"context"
	"flag"
	"log"
	"sort"
	"time"

	"github.com/stedman/grade-fetch/backend/internal/shared"
	"github.com/stedman/grade-fetch/backend/internal/store"
)

func main() {
	dir := flag.String("dir", "data/fixtures", "directory holding students.json, courses.json and classwork.json")
	envFile := flag.String("env", ".env", "environment file")
	flag.Parse()

	log.Println("INFO: Starting Database Seeder...")

	if err := shared.LoadEnv(*envFile); err != nil {
		log.Println("INFO: Continuing with process environment")
	}
	cfg, err := shared.LoadServiceConfig("seeder", true)
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	fixtures, err := store.LoadFixtures(*dir)
	if err != nil {
		log.Fatalf("FATAL: Failed to load fixtures: %v", err)
	}
	log.Printf("INFO: Loaded %d students, %d courses and %d classwork rows from %s",
		len(fixtures.Students), len(fixtures.Courses), len(fixtures.Classwork), *dir)

	client, db, err := shared.ConnectMongoDB(&cfg.MongoDB)
	if err != nil {
		log.Fatalf("FATAL: Failed to connect to MongoDB: %v", err)
	}
	defer shared.DisconnectMongoDB(client)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	mongoStore := store.NewMongoStore(db)
	if err := mongoStore.ReplaceFixtures(ctx, fixtures); err != nil {
		log.Fatalf("FATAL: Seeding failed: %v", err)
	}
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		log.Fatalf("FATAL: Failed to create indexes: %v", err)
	}

	counts, err := mongoStore.Counts(ctx)
	if err != nil {
		log.Fatalf("FATAL: Failed to verify seeded data: %v", err)
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		log.Printf("INFO: %s: %d documents", name, counts[name])
	}

	log.Println("INFO: Database seeding completed successfully.")
}
