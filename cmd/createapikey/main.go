package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
	"github.com/contentlens/analyzer-api/internal/storage/postgres"
	"github.com/contentlens/analyzer-api/internal/util"
)

func main() {
	accountIDArg := flag.String("account", "", "Owning account UUID")
	name := flag.String("name", "Default key", "Key name")
	tierArg := flag.String("tier", "starter", "Tier: starter, growth or enterprise")
	testEnv := flag.Bool("test", false, "Mint a test-environment key")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	accountID, err := uuid.Parse(*accountIDArg)
	if err != nil {
		log.Fatalf("Invalid -account UUID: %v", err)
	}

	tier := apikey.Tier(*tierArg)
	if !apikey.ValidTier(tier) {
		log.Fatalf("Unknown tier %q", *tierArg)
	}

	env := apikey.EnvProduction
	if *testEnv {
		env = apikey.EnvTesting
	}

	fullKey, prefix, lastFour, keyHash, err := util.GenerateAPIKey(env)
	if err != nil {
		log.Fatalf("Failed to generate API key: %v", err)
	}

	fmt.Printf("Generated API Key (SAVE THIS securely, it is not recoverable!):\n%s\n\n", fullKey)
	fmt.Printf("Prefix:    %s\n", prefix)
	fmt.Printf("Last four: %s\n", lastFour)

	logger, _ := zap.NewDevelopment()
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	repo := postgres.NewAPIKeyRepository(pool, logger)

	limits := apikey.LimitsForTier(tier)
	newKey := &apikey.APIKey{
		AccountID:          accountID,
		Name:               *name,
		KeyHash:            keyHash,
		KeyPrefix:          prefix,
		LastFour:           lastFour,
		Tier:               tier,
		Environment:        env,
		RateLimitPerMinute: limits.PerMinute,
		RateLimitPerDay:    limits.PerDay,
		RateLimitPerMonth:  limits.PerMonth,
		IsActive:           true,
	}

	keyID, err := repo.Create(context.Background(), newKey)
	if err != nil {
		log.Fatalf("Failed to save API key to database: %v", err)
	}

	fmt.Printf("\nAPI Key saved to database with ID: %s\n", keyID)
}
