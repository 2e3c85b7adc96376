package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/contentpulse/campaign-controller/internal/backend"
	"github.com/contentpulse/campaign-controller/internal/config"
	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("🔍 Campaign Controller - Backend Connectivity Test")
	fmt.Println("==================================================")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("\n📡 Testing backend at %s...\n", cfg.BackendURL)
	fmt.Println(strings.Repeat("-", 40))

	campaigns := backend.NewCampaignClient(cfg.BackendURL, cfg.RequestTimeout)

	fmt.Print("🔸 Listing campaigns... ")
	list, err := campaigns.List(ctx)
	if err != nil {
		fmt.Printf("❌ FAILED: %v\n", err)
	} else {
		fmt.Printf("✅ OK (%d campaigns)\n", len(list))
	}

	if len(list) > 0 {
		fmt.Printf("🔸 Fetching campaign %s... ", list[0].ID)
		if _, err := campaigns.Get(ctx, list[0].ID); err != nil {
			fmt.Printf("❌ FAILED: %v\n", err)
		} else {
			fmt.Println("✅ OK")
		}

		if list[0].TaskID != "" {
			analysis := backend.NewAnalysisClient(cfg.BackendURL, cfg.RequestTimeout)
			fmt.Printf("🔸 Querying task %s... ", list[0].TaskID)
			if status, err := analysis.Status(ctx, list[0].TaskID); err != nil {
				fmt.Printf("❌ FAILED: %v\n", err)
			} else {
				fmt.Printf("✅ OK (%s, %d%%)\n", status.Status, status.Progress)
			}
		}
	}

	fmt.Println("\n✅ Backend connectivity test completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Configure BACKEND_URL and notification settings in .env")
	fmt.Println("   • Run the controller with: go run ./cmd/controller")
}
