package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// RewardDenom is the denomination of the mintable reward asset.
	RewardDenom string

	// GenesisUnix is the wall-clock time (unix seconds) of step zero.
	GenesisUnix int64
	// StepSeconds is the wall-clock length of one time step.
	StepSeconds int64
	// StartStep is the step at which emission begins; pools added earlier
	// checkpoint at this step.
	StartStep uint64

	// OwnerAddress may perform privileged operations (add/set pool,
	// commission rate, referral registry).
	OwnerAddress string
	// DevAddress receives the dev share of every accrual mint.
	DevAddress string
	// FeeAddress receives skimmed deposit fees.
	FeeAddress string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	RewardDenom, err = getEnv("FARM_REWARD_DENOM")
	if err != nil {
		return err
	}

	GenesisUnix, err = getEnvAsInt64("FARM_GENESIS_UNIX")
	if err != nil {
		return err
	}

	StepSeconds, err = getEnvAsInt64("FARM_STEP_SECONDS")
	if err != nil {
		return err
	}
	if StepSeconds <= 0 {
		return errors.New("environment variable FARM_STEP_SECONDS must be positive")
	}

	StartStep, err = getEnvAsUint64("FARM_START_STEP")
	if err != nil {
		return err
	}

	OwnerAddress, err = getEnv("FARM_OWNER_ADDRESS")
	if err != nil {
		return err
	}

	DevAddress, err = getEnv("FARM_DEV_ADDRESS")
	if err != nil {
		return err
	}

	FeeAddress, err = getEnv("FARM_FEE_ADDRESS")
	if err != nil {
		return err
	}

	log.Debug().
		Str("RewardDenom", RewardDenom).
		Int64("GenesisUnix", GenesisUnix).
		Int64("StepSeconds", StepSeconds).
		Uint64("StartStep", StartStep).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt64 retrieves an environment variable as an int64. Returns error if not set or invalid.
func getEnvAsInt64(key string) (int64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}
