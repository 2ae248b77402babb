// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdk "github.com/planet-nine-app/continuebee/sdk/golang"
)

// stateHash mimics a client hashing its local state.
func stateHash(generation int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("simulated-state-%d", generation)))
	return hex.EncodeToString(sum[:])
}

func main() {
	serverURL := os.Getenv("CB_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:2999"
	}

	client, err := sdk.New(sdk.Config{
		ServerURL: serverURL,
		AppName:   "Simulator",
		DataDir:   ".",
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		log.Println("🛑 Stopping simulator...")
		cancel()
	}()

	log.Println("🚀 Starting simulator (Register -> Verify -> Rotate -> Delete)...")

	generation := 0
	hash := stateHash(generation)

	if !client.Registered() {
		user, err := client.Register(ctx, hash)
		if err != nil {
			log.Fatalf("register failed: %v", err)
		}
		log.Printf("✅ Registered as %s", user.UserUUID)
	} else {
		log.Printf("♻️  Reusing identity %s", client.UserUUID())
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			if err := client.VerifyHash(ctx, hash); err != nil {
				log.Printf("❌ Verify failed: %v", err)
				continue
			}
			log.Printf("✅ Hash verified (generation %d)", generation)

			// Occasionally mutate local state and rotate the stored hash.
			if rand.Intn(3) == 0 {
				generation++
				newHash := stateHash(generation)
				if _, err := client.UpdateHash(ctx, hash, newHash); err != nil {
					log.Printf("❌ Rotate failed: %v", err)
					generation--
					continue
				}
				hash = newHash
				log.Printf("🔄 Rotated hash to generation %d", generation)
			}
		}
	}

	cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cleanupCancel()
	if err := client.Delete(cleanupCtx, hash); err != nil {
		log.Printf("⚠️  Delete failed: %v", err)
	} else {
		log.Println("🗑️  Account deleted")
	}
	log.Println("👋 Simulator stopped.")
}
