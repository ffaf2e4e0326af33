package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vaultblockmagic/vault/internal/handlers"
)

func main() {
	address := flag.String("address", "0x742d35Cc6634C0532925a3b0F26750C66d78EB66", "wallet address for the token")
	chainID := flag.Uint64("chain", 43113, "chain id claim")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Println("JWT_SECRET must be set")
		os.Exit(1)
	}

	tokenString, err := handlers.GenerateJWTToken(secret, *address, *chainID)
	if err != nil {
		fmt.Printf("Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("============================================================")
	fmt.Println("JWT Token Generated for Testing")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(tokenString)
	fmt.Println()
	fmt.Println("Claims:")
	fmt.Printf("  User Address: %s\n", *address)
	fmt.Printf("  Chain ID: %d\n", *chainID)
	fmt.Println()
	fmt.Printf("Usage: curl -H 'Authorization: Bearer %s' http://localhost:8080/api/chain\n", tokenString)
}
