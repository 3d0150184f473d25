// Command riskscan runs a one-shot bundle-risk analysis for one or more token
// mints: launch-window transaction density, early-buyer funding overlap, and a
// coarse holder profile.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"solana-vortex/internal/config"
	"solana-vortex/internal/domain"
	"solana-vortex/internal/logging"
	"solana-vortex/internal/relay"
	"solana-vortex/internal/security"
)

type report struct {
	Mint     string                `json:"mint"`
	Risk     domain.BundleRisk     `json:"risk"`
	Holders  *domain.HolderProfile `json:"holders,omitempty"`
	Duration string                `json:"duration"`
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	rpcURL := flag.String("rpc-url", "", "Primary RPC HTTP endpoint (overrides config)")
	holders := flag.Bool("holders", false, "Include a holder concentration profile")
	asJSON := flag.Bool("json", false, "Emit JSON reports instead of text")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall deadline per mint")
	flag.Parse()

	mints := flag.Args()
	if len(mints) == 0 {
		fmt.Fprintln(os.Stderr, "usage: riskscan [flags] <mint> [<mint>...]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *rpcURL != "" {
		cfg.RPC.PrimaryURL = *rpcURL
	}

	logger := logging.New(cfg.Logging)
	rel := relay.New(cfg.Endpoints(), logger)
	analyzer := security.NewAnalyzer(rel, logger, nil)

	exit := 0
	for _, mint := range mints {
		if err := security.ValidateAddress(mint); err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", mint, err)
			exit = 1
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		started := time.Now()
		risk := analyzer.Analyze(ctx, mint)

		rep := report{
			Mint:     mint,
			Risk:     risk,
			Duration: time.Since(started).Round(time.Millisecond).String(),
		}
		if *holders {
			if profile, err := analyzer.HolderProfile(ctx, mint); err == nil {
				rep.Holders = &profile
			} else {
				fmt.Fprintf(os.Stderr, "holder profile for %s failed: %v\n", mint, err)
			}
		}
		cancel()

		if *asJSON {
			out, _ := json.MarshalIndent(rep, "", "  ")
			fmt.Println(string(out))
			continue
		}
		printReport(rep)
	}
	os.Exit(exit)
}

func printReport(rep report) {
	fmt.Printf("%s\n", rep.Mint)
	fmt.Printf("  risk level:     %s\n", rep.Risk.RiskLevel)
	fmt.Printf("  bundled:        %v\n", rep.Risk.IsBundled)
	fmt.Printf("  density:        %.2f%%\n", rep.Risk.DensityPercent)
	if rep.Holders != nil {
		fmt.Printf("  holders seen:   %d\n", rep.Holders.EstimatedHolders)
		fmt.Printf("  top holder:     %.2f%%\n", rep.Holders.TopHolderShare*100)
	}
	fmt.Printf("  scan took:      %s\n", rep.Duration)
}
