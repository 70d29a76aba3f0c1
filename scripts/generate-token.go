//go:build ignore

// generate-token.go - Mint a dev token pair for a given account id
//
// Usage:
//   go run scripts/generate-token.go -config config.yaml -account 1

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/auth"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/config"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to config file")
	accountID  = flag.Int64("account", 1, "Account id to mint tokens for")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	codec := auth.NewTokenCodec(&cfg.Auth)
	pair, err := codec.IssuePair(*accountID, time.Now())
	if err != nil {
		fmt.Printf("Error issuing tokens: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("access_token:  %s\n", pair.AccessToken)
	fmt.Printf("refresh_token: %s\n", pair.RefreshToken)
	fmt.Printf("expires_in:    %ds\n", pair.ExpiresIn)
}
