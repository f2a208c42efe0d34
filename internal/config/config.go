package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	DBSource      string
	Port          string
	Env           string
	StoreDriver   string
	ListingFee    int64
	Operator      string
	MarketAccount string
}

func Load() (*Config, error) {
	driver := os.Getenv("STORE_DRIVER")
	if driver == "" {
		driver = "postgres"
	}
	if driver != "postgres" && driver != "memory" {
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", driver)
	}

	dbSource := os.Getenv("DB_SOURCE")
	if driver == "postgres" && dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	listingFee := int64(10)
	if v := os.Getenv("LISTING_FEE"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid LISTING_FEE %q", v)
		}
		listingFee = parsed
	}

	operator := os.Getenv("OPERATOR_ACCOUNT")
	if operator == "" {
		operator = "operator"
	}

	marketAccount := os.Getenv("MARKET_ACCOUNT")
	if marketAccount == "" {
		marketAccount = "marketplace"
	}

	return &Config{
		DBSource:      dbSource,
		Port:          port,
		Env:           env,
		StoreDriver:   driver,
		ListingFee:    listingFee,
		Operator:      operator,
		MarketAccount: marketAccount,
	}, nil
}
