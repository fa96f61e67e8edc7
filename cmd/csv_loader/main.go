package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/lcalzada-xor/netsentry/internal/adapters/storage"
)

func main() {
	csvFile := flag.String("csv", "./data/realtime_logs.csv", "Path to legacy realtime CSV log")
	dbPath := flag.String("db", "./data/threats.db", "Path to threat database")
	flag.Parse()

	log.Println("=== Legacy CSV Loader ===")
	log.Printf("CSV file: %s", *csvFile)
	log.Printf("Database: %s", *dbPath)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	store, err := storage.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	inserted, err := store.ImportCSV(*csvFile)
	if err != nil {
		log.Fatalf("Failed to import CSV: %v", err)
	}

	maxID, err := store.MaxThreatID()
	if err != nil {
		log.Fatalf("Failed to read back threat count: %v", err)
	}
	log.Printf("✓ Imported %d new rows (highest threat id %d)", inserted, maxID)
}
