// One-shot diagnosis of a single URL, printing the CrawlResult as JSON.
// Useful for debugging scoring changes without the queue.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Ciras-Inc/ciras-site/packages/diagnosis"
	"github.com/Ciras-Inc/ciras-site/packages/fetcher"
)

func main() {
	urlFlag := flag.String("url", "", "site URL to diagnose (scheme optional)")
	strategyFlag := flag.String("strategy", "broad", "link selection strategy: broad or targeted")
	timeoutFlag := flag.Duration("timeout", 15*time.Second, "per-page fetch timeout")
	verboseFlag := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *urlFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: diagnose -url <site> [-strategy broad|targeted]")
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verboseFlag {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	strategy := diagnosis.StrategyBroad
	if *strategyFlag == string(diagnosis.StrategyTargeted) {
		strategy = diagnosis.StrategyTargeted
	}

	orch := diagnosis.New(fetcher.New(*timeoutFlag), strategy)
	result := orch.Diagnose(context.Background(), *urlFlag)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		slog.Error("Failed to encode result", "error", err)
		os.Exit(1)
	}

	if !result.Success {
		os.Exit(1)
	}
}
