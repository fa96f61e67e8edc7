package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/adapters/osint"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
)

// Seeds the OSINT indicator cache without starting the daemon, so a fresh
// deployment recognizes known-bad sources from its very first packet.
func main() {
	dbPath := flag.String("db", "data/osint_cache.db", "Path to indicator cache database")
	ipURL := flag.String("ip-feed", "https://feodotracker.abuse.ch/downloads/ipblocklist.txt", "IP blocklist feed URL")
	domainURL := flag.String("domain-feed", "https://urlhaus.abuse.ch/downloads/text/", "Domain blocklist feed URL")
	flag.Parse()

	log.Printf("OSINT Feed Updater")
	log.Printf("Database: %s", *dbPath)

	cache, err := osint.NewSQLiteCache(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	defer cache.Close()

	fetcher := osint.NewFeedFetcher(*ipURL, *domainURL)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	ips, err := fetcher.FetchIPs(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch IP blocklist: %v", err)
	}
	if err := cache.Save(ports.IndicatorKindIP, ips); err != nil {
		log.Fatalf("Failed to cache IP blocklist: %v", err)
	}
	log.Printf("✓ Cached %d IP indicators", len(ips))

	domains, err := fetcher.FetchDomains(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch domain blocklist: %v", err)
	}
	if err := cache.Save(ports.IndicatorKindDomain, domains); err != nil {
		log.Fatalf("Failed to cache domain blocklist: %v", err)
	}
	log.Printf("✓ Cached %d domain indicators", len(domains))
}
