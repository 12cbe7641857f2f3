// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command keygen mints an API token and the bcrypt hash that goes into the
// server's api-keys configuration. The token is printed once and never
// stored; only the hash belongs in config.yaml.
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"math/big"
	"os"

	"golang.org/x/crypto/bcrypt"
)

const (
	tokenPrefix   = "vk_"
	tokenBodyLen  = 32
	tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func generateToken() (string, error) {
	body := make([]byte, tokenBodyLen)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range body {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		body[i] = tokenAlphabet[n.Int64()]
	}
	return tokenPrefix + string(body), nil
}

func main() {
	var id string
	var tier string
	var cost int
	flag.StringVar(&id, "id", "", "Principal id for the generated snippet")
	flag.StringVar(&tier, "tier", "standard", "Principal tier: standard or admin")
	flag.IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost for the key hash")
	flag.Parse()

	if id == "" {
		fmt.Fprintln(os.Stderr, "usage: keygen -id <principal-id> [-tier standard|admin] [-cost N]")
		os.Exit(2)
	}
	if tier != "standard" && tier != "admin" {
		fmt.Fprintf(os.Stderr, "unknown tier %q\n", tier)
		os.Exit(2)
	}

	token, err := generateToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate token: %v\n", err)
		os.Exit(1)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API key (give to the caller, shown only once):\n\n  %s\n\n", token)
	fmt.Printf("config.yaml snippet:\n\n")
	fmt.Printf("  - id: %s\n", id)
	fmt.Printf("    key-hash: %s\n", string(hash))
	fmt.Printf("    tier: %s\n", tier)
}
