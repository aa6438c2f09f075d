// Command seed imports collector accounts from a CSV file.
//
//	seed collectors.csv
//
// Rows without a password get a generated one, printed once at the end.
// SEED_DRY_RUN=true only validates the file, SEED_MAX_ROWS caps how many
// rows are read.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/ArowuTest/recyclehub-backend/internal/config"
	mongorepo "github.com/ArowuTest/recyclehub-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/recyclehub-backend/internal/utils"
	"github.com/ArowuTest/recyclehub-backend/pkg/mongodb"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	mongoURI := config.GetEnv("MONGODB_URI", "")
	if mongoURI == "" {
		log.Fatal("MONGODB_URI environment variable is required")
	}
	dbName := config.GetEnv("MONGODB_DATABASE", "recyclehub")
	timeout := config.GetEnvAsDuration("SEED_TIMEOUT", 5*time.Minute)
	dryRun := config.GetEnvAsBool("SEED_DRY_RUN", false)
	maxRows := config.GetEnvAsInt("SEED_MAX_ROWS", 0)

	if len(os.Args) < 2 {
		log.Fatal("CSV file path is required as a command line argument")
	}
	file, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongodb.NewClient(ctx, mongoURI, dbName, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	users := mongorepo.NewUserRepository(client.Database())
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create user indexes: %v", err)
	}

	importer := utils.NewCollectorImporter(users).WithDryRun(dryRun).WithMaxRows(maxRows)
	result, err := importer.ImportCollectors(ctx, file)
	if err != nil {
		log.Fatalf("Import aborted: %v", err)
	}

	for _, e := range result.Errors {
		log.Println(e)
	}
	for email, password := range result.GeneratedPasswords {
		log.Printf("Generated password for %s: %s", email, password)
	}
	if dryRun {
		log.Printf("Dry run: %d collectors would be created, %d skipped, %d errors (of %d rows)",
			result.Created, result.Skipped, len(result.Errors), result.TotalRows)
		return
	}
	log.Printf("Collectors imported: %d created, %d skipped, %d errors (of %d rows)",
		result.Created, result.Skipped, len(result.Errors), result.TotalRows)
}
