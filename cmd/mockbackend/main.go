// Command mockbackend starts an in-process fake of the ZAP scanning backend
// so the tracker and the local API can be exercised without a scanner.
// Usage: go run ./cmd/mockbackend [port]
// Default port: 8000
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/raysh454/shadowzap/internal/logging"
	"github.com/raysh454/shadowzap/internal/mockbackend"
)

func main() {
	cfg := mockbackend.DefaultConfig()

	// Optional: custom port from command line
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}

	fmt.Println("===========================================")
	fmt.Println("   shadowzap mock backend")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Scans advance one state per status poll:")
	fmt.Println("  Initializing -> Running -> Processing -> Completed")
	fmt.Println()
	fmt.Println("Targets containing \"reject\" are refused, and the")
	fmt.Println("control panel can fail the next poll of any scan.")
	fmt.Println()

	server := mockbackend.New(cfg, logging.NewStdoutLogger("mockbackend"))
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
