package server

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime configuration of the market server.
type Config struct {
	Addr            string `env:"ADDR" envDefault:":3000"`
	DBPath          string `env:"DB_PATH" envDefault:"marketd.db"`
	FeePercent      uint64 `env:"FEE_PERCENT" envDefault:"1"`
	NFTName         string `env:"NFT_NAME" envDefault:"DApp NFT"`
	NFTSymbol       string `env:"NFT_SYMBOL" envDefault:"DAPP"`
	DeployerBalance uint64 `env:"DEPLOYER_BALANCE" envDefault:"1000000000"`
}

// LoadConfig collects configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
