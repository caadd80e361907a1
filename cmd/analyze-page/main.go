package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/raine/listing-digest/config"
	"github.com/raine/listing-digest/internal/fetch"
	"github.com/raine/listing-digest/internal/llm"
	"github.com/raine/listing-digest/internal/pipeline"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	htmlPath := flag.String("html", "", "Path to a saved product page")
	pageURL := flag.String("url", "", "Product page URL to fetch instead of -html")
	listingType := flag.String("type", "", "Listing type (empty for product, \"place\" for local business)")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-html page.html | -url URL] [-type place] [image ...]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY - Required\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_MODEL   - Optional (default %s)\n\n", llm.DefaultGeminiModel)
		flag.PrintDefaults()
	}
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.GeminiAPIKey == "" {
		fmt.Fprintf(os.Stderr, "Error: GEMINI_API_KEY is not set\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen, err := llm.NewGeminiGenerator(ctx, llm.GeminiOptions{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating Gemini generator: %v\n", err)
		os.Exit(1)
	}

	svc := pipeline.NewService(gen, fetch.NewClient(cfg.Fetch), cfg.Pipeline)

	var result pipeline.Result
	if *pageURL != "" {
		result = svc.AnalyzeURL(ctx, *pageURL)
	} else {
		payload, err := readPayload(*htmlPath, *listingType, flag.Args())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		result = svc.Analyze(ctx, payload)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	if !result.Success {
		os.Exit(2)
	}
}

func readPayload(htmlPath, listingType string, imagePaths []string) (pipeline.Payload, error) {
	payload := pipeline.Payload{Type: pipeline.ParseListingType(listingType)}

	if htmlPath != "" {
		data, err := os.ReadFile(htmlPath)
		if err != nil {
			return payload, fmt.Errorf("failed to read html: %w", err)
		}
		payload.HTML = string(data)
	}

	for _, p := range imagePaths {
		data, err := os.ReadFile(p)
		if err != nil {
			return payload, fmt.Errorf("failed to read image %s: %w", p, err)
		}
		payload.Images = append(payload.Images, data)
	}
	return payload, nil
}
