package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/thermobook/internal/pipeline"
	"github.com/ppiankov/thermobook/internal/store"
	"github.com/spf13/cobra"
)

var (
	scanFetch   fetchFlags
	scanStore   bool
	scanDB      string
	scanOut     string
	scanTimeout time.Duration
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <name|cas|url>",
	Short: "Extract the properties of one substance",
	Long: `Scan walks the WebBook pages of a single substance:
- Read identity from the root page (name, CAS, formula, weight, InChI, image)
- Follow the gas phase, condensed phase and phase change pages in order
- Merge every property into one flat record
- Print the record as JSON, optionally storing it

The substance is given by name, CAS number (dashes allowed) or root page URL.

Example:
  thermobook scan methane
  thermobook scan 74-82-8 --store
  thermobook scan "https://webbook.nist.gov/cgi/cbook.cgi?ID=C74828&Units=SI" -o methane.json`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(&scanStore, "store", false, "persist the record in the document store")
	scanCmd.Flags().StringVar(&scanDB, "db", "", "document store path (default from config)")
	scanCmd.Flags().StringVarP(&scanOut, "output", "o", "", "output JSON path (default stdout)")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "whole walk timeout (default from config)")
	scanFetch.register(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	identifier := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	scanFetch.apply(cfg)
	if scanTimeout > 0 {
		cfg.Walk.Timeout = scanTimeout
	}
	if scanDB != "" {
		cfg.Store.Path = scanDB
	}
	logger := newLogger(cfg)

	var st pipeline.Store
	if scanStore {
		s, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		st = s
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Scanning: %s\n", identifier)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", cfg.Walk.Timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	p := newPipeline(cfg, st, logger)
	result, err := p.Process(context.Background(), identifier)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if result.Substance == nil {
		return fmt.Errorf("no substance data at %s", result.URL)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Walk %s visited %d pages in %v\n", result.Walk.WalkID, len(result.Walk.Visited), result.Walk.Latency.Round(time.Millisecond))
		fmt.Fprintf(os.Stderr, "✓ Extracted %d fields for %s (CAS %d)\n", len(result.Substance.FieldNames()), result.Substance.Name, result.Substance.CAS)
		if scanStore {
			if result.Stored {
				fmt.Fprintf(os.Stderr, "✓ Stored in %s\n", cfg.Store.Path)
			} else {
				fmt.Fprintf(os.Stderr, "- Not stored: %s\n", result.SkipReason)
			}
		}
		fmt.Fprintln(os.Stderr)
	}

	data, err := json.MarshalIndent(result.Substance, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	data = append(data, '\n')

	if scanOut == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(scanOut, data, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", scanOut)
	}
	return nil
}
