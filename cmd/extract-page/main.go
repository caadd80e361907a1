package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/raine/listing-digest/internal/extract"
	"github.com/raine/listing-digest/internal/fetch"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prints the signals extracted from a product page without calling the model.
func main() {
	htmlPath := flag.String("html", "", "Path to a saved product page")
	pageURL := flag.String("url", "", "Product page URL to fetch")
	domain := flag.String("domain", fetch.DefaultAllowedDomain, "Allowed fetch domain")
	rawJSON := flag.Bool("json", false, "Output raw JSON only")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var page []byte
	var err error
	switch {
	case *pageURL != "":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		client := fetch.NewClient(fetch.Options{AllowedDomain: *domain})
		page, err = client.Fetch(ctx, *pageURL)
	case *htmlPath != "":
		page, err = os.ReadFile(*htmlPath)
	default:
		fmt.Fprintf(os.Stderr, "Usage: %s -html page.html | -url URL\n", os.Args[0])
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sig := extract.Extract(string(page), extract.DefaultRules())

	if *rawJSON {
		jsonBytes, _ := json.MarshalIndent(sig, "", "  ")
		fmt.Println(string(jsonBytes))
		return
	}

	name, price := "N/A", "N/A"
	if sig.Name != "" {
		name = sig.Name
	}
	if sig.Price != "" {
		price = sig.Price
	}
	fmt.Printf("Name:  %s\n", name)
	fmt.Printf("Price: %s\n", price)
	fmt.Printf("Descriptions (%d):\n", len(sig.Descriptions))
	for i, d := range sig.Descriptions {
		fmt.Printf("%2d. %s\n", i+1, d)
	}
}
