package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/stakeworks/farmd/internal/assets"
	"github.com/stakeworks/farmd/internal/auth"
	"github.com/stakeworks/farmd/internal/config"
	"github.com/stakeworks/farmd/internal/farm"
	"github.com/stakeworks/farmd/internal/logger"
	"github.com/stakeworks/farmd/internal/referral"
	"github.com/stakeworks/farmd/internal/service"
	"github.com/stakeworks/farmd/internal/state"
	"github.com/stakeworks/farmd/internal/types"
	"github.com/stakeworks/farmd/internal/web"
)

const (
	LOOP_INTERVAL = 1 * time.Minute

	// EngineAccount is the ledger account holding staked assets and earned
	// rewards on the engine's behalf.
	EngineAccount = types.Account("farmd-engine")
)

// main is the entry point for the farmd staking ledger.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("farmd staking ledger starting...")

	// Initialize Database Connection (event journal + snapshots)
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Collaborator Construction ---
	bank := assets.NewLedger()
	referrals := referral.NewMemoryRegistry()

	gate, err := auth.NewGate(
		types.Account(config.OwnerAddress),
		types.Account(config.DevAddress),
		types.Account(config.FeeAddress),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to construct authorization gate")
	}

	clock := farm.StepClock{
		GenesisUnix: config.GenesisUnix,
		StepSeconds: config.StepSeconds,
	}

	// Resume the emission schedule where the last run left off.
	var resume *types.EmissionState
	if persisted, err := state.LoadEmissionState(); err == nil {
		resume = &persisted
		log.Info().Str("rate", persisted.RatePerStep.String()).Msg("Resuming persisted emission state")
	} else if !errors.Is(err, sql.ErrNoRows) {
		log.Fatal().Err(err).Msg("Failed to load persisted emission state")
	}

	// --- 3. Farm Engine Construction ---
	farmCfg := farm.Config{
		Bank:          bank,
		Referrals:     referrals,
		Gate:          gate,
		Clock:         clock,
		Events:        state.EventJournal{},
		RewardDenom:   config.RewardDenom,
		EngineAccount: EngineAccount,
		StartStep:     config.StartStep,
		Emission:      config.DefaultEmissionParams,
		CommissionBP:  mustAtoU64(os.Getenv("FARM_COMMISSION_BP"), 100),
		Resume:        resume,
	}

	engine, err := farm.NewFarm(farmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create farm engine")
	}

	if err := provisionPools(engine, os.Getenv("FARM_POOLS")); err != nil {
		log.Fatal().Err(err).Msg("Failed to provision genesis pools")
	}

	// --- 4. Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, engine)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting farmd API server")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Maintenance Loop ---
	svc, err := service.NewService(service.Config{Farm: engine, Persist: true})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create maintenance service")
	}

	log.Info().Str("interval", LOOP_INTERVAL.String()).Msg("Starting maintenance loop")
	svc.RunLoop(context.Background(), LOOP_INTERVAL)
}

// provisionPools adds the pools named in the FARM_POOLS value, a comma-separated list of
// denom:weight:depositFeeBP entries, e.g. "ufarm:1000:0,uatom:400:200".
func provisionPools(engine *farm.Farm, poolList string) error {
	if poolList == "" {
		log.Warn().Msg("FARM_POOLS not set; starting with an empty pool registry")
		return nil
	}

	owner := types.Account(config.OwnerAddress)
	for _, entry := range strings.Split(poolList, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return errors.New("malformed FARM_POOLS entry: " + entry)
		}
		weight, ok := sdkmath.NewIntFromString(parts[1])
		if !ok {
			return errors.New("malformed pool weight in FARM_POOLS entry: " + entry)
		}
		feeBP, err := strconv.ParseUint(parts[2], 10, 64)
		if err != nil {
			return errors.New("malformed deposit fee in FARM_POOLS entry: " + entry)
		}
		id, err := engine.AddPool(owner, weight, parts[0], feeBP, false)
		if err != nil {
			return err
		}
		log.Info().Uint64("pool_id", uint64(id)).Str("denom", parts[0]).Msg("Genesis pool provisioned")
	}
	return nil
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}

// Helper to convert string to uint64 with a default value
func mustAtoU64(s string, defaultValue uint64) uint64 {
	if s == "" {
		return defaultValue
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return defaultValue
	}
	return v
}
