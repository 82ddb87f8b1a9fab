package config

import (
	"fmt"
	"time"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/spf13/viper"
)

type Config struct {
	Port  string
	DbUrl string

	GoogleProjectId string

	FlowAccessHost        string
	FlowTokenAddress      string
	FungibleTokenAddress  string
	PlatformKmsResourceId string
	PlatformAddress       string

	KmsProjectId  string
	KmsLocationId string
	KmsKeyRingId  string

	GeminiApiKey string
	GeminiModel  string

	DecisionTimeout     time.Duration
	LedgerTimeout       time.Duration
	RoundPause          time.Duration
	AutopilotInterval   time.Duration
	AutopilotRealValue  bool
	AgentInitialFunding model.Amount
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("PORT", ":8080")
	v.SetDefault("FLOW_ACCESS_HOST", "access.devnet.nodes.onflow.org:9000")
	v.SetDefault("FLOW_TOKEN_ADDRESS", "7e60df042a9c0868")
	v.SetDefault("FUNGIBLE_TOKEN_ADDRESS", "9a0766d93b6608b7")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("DECISION_TIMEOUT", "20s")
	v.SetDefault("LEDGER_TIMEOUT", "90s")
	v.SetDefault("ROUND_PAUSE", "1s")
	v.SetDefault("AUTOPILOT_INTERVAL", "0s")
	v.SetDefault("AUTOPILOT_REAL_VALUE", false)
	v.SetDefault("AGENT_INITIAL_FUNDING", "0.0")
}

// Load reads every key from v. Call SetDefaults first.
func Load(v *viper.Viper) (Config, error) {
	funding, err := model.ParseAmount(v.GetString("AGENT_INITIAL_FUNDING"))
	if err != nil {
		return Config{}, fmt.Errorf("AGENT_INITIAL_FUNDING: %w", err)
	}

	cfg := Config{
		Port:                  v.GetString("PORT"),
		DbUrl:                 v.GetString("DB_URL"),
		GoogleProjectId:       v.GetString("GOOGLE_PROJECT_ID"),
		FlowAccessHost:        v.GetString("FLOW_ACCESS_HOST"),
		FlowTokenAddress:      v.GetString("FLOW_TOKEN_ADDRESS"),
		FungibleTokenAddress:  v.GetString("FUNGIBLE_TOKEN_ADDRESS"),
		PlatformKmsResourceId: v.GetString("PLATFORM_KMS_RESOURCE_NAME"),
		PlatformAddress:       v.GetString("PLATFORM_ADDRESS"),
		KmsProjectId:          v.GetString("GOOGLE_KMS_PROJECT_ID"),
		KmsLocationId:         v.GetString("GOOGLE_KMS_LOCATION_ID"),
		KmsKeyRingId:          v.GetString("GOOGLE_KMS_KEYRING_ID"),
		GeminiApiKey:          v.GetString("GEMINI_API_KEY"),
		GeminiModel:           v.GetString("GEMINI_MODEL"),
		DecisionTimeout:       v.GetDuration("DECISION_TIMEOUT"),
		LedgerTimeout:         v.GetDuration("LEDGER_TIMEOUT"),
		RoundPause:            v.GetDuration("ROUND_PAUSE"),
		AutopilotInterval:     v.GetDuration("AUTOPILOT_INTERVAL"),
		AutopilotRealValue:    v.GetBool("AUTOPILOT_REAL_VALUE"),
		AgentInitialFunding:   funding,
	}

	if cfg.DbUrl == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.DecisionTimeout <= 0 || cfg.LedgerTimeout <= 0 {
		return Config{}, fmt.Errorf("DECISION_TIMEOUT and LEDGER_TIMEOUT must be positive")
	}

	return cfg, nil
}

// LedgerEnabled reports whether enough Flow configuration is present to move real value.
func (c Config) LedgerEnabled() bool {
	return c.FlowAccessHost != "" && c.PlatformAddress != "" && c.PlatformKmsResourceId != ""
}
