package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ppiankov/thermobook/internal/pipeline"
	"github.com/ppiankov/thermobook/internal/store"
	"github.com/ppiankov/thermobook/internal/worker"
	"github.com/spf13/cobra"
)

var (
	batchFetch       fetchFlags
	batchConcurrency int
	batchTimeout     time.Duration
	batchNoStore     bool
	batchDB          string
	batchOutputDir   string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Extract many substances from a file in parallel",
	Long: `Batch processes many substances concurrently:
- Read names, CAS numbers or root page URLs from a file (one per line, # comments)
- Walk substances in parallel with a configurable worker count
- Store every record that has a structure image and is not stored yet
- One failing substance never stops the others

Example:
  thermobook batch links.txt
  thermobook batch links.txt --concurrency 8 --db ./webbook.db
  thermobook batch links.txt --no-store --output-dir ./records`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "number of concurrent walks (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", time.Hour, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchNoStore, "no-store", false, "do not persist records")
	batchCmd.Flags().StringVar(&batchDB, "db", "", "document store path (default from config)")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "also write each record to <dir>/<cas>.json")
	batchFetch.register(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	batchFetch.apply(cfg)
	if batchConcurrency > 0 {
		cfg.Concurrency.Workers = batchConcurrency
	}
	if batchDB != "" {
		cfg.Store.Path = batchDB
	}
	logger := newLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	storeDesc := "disabled"
	var st pipeline.Store
	if !batchNoStore {
		s, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		st = s
		storeDesc = cfg.Store.Path
	}

	if batchOutputDir != "" {
		if err := os.MkdirAll(batchOutputDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Thermobook Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Store:        %s\n", storeDesc)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	p := newPipeline(cfg, st, logger)
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers)
	processor.OnProgress(reportProgress)

	fmt.Fprintf(os.Stderr, "⚙️  Processing substances with %d workers...\n\n", cfg.Concurrency.Workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	var extracted, stored, failed int
	for _, r := range results {
		if r.Error != nil {
			failed++
			continue
		}
		if r.Result == nil || r.Result.Substance == nil {
			continue
		}
		extracted++
		if r.Result.Stored {
			stored++
		}
		if batchOutputDir != "" {
			if err := writeRecord(batchOutputDir, r.Result); err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Identifier, err)
			}
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:      %d substances\n", len(results))
	fmt.Fprintf(os.Stderr, "  Extracted:  %d\n", extracted)
	fmt.Fprintf(os.Stderr, "  Stored:     %d\n", stored)
	fmt.Fprintf(os.Stderr, "  Failures:   %d\n", failed)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

func reportProgress(r *worker.SubstanceResult) {
	switch {
	case r.Error != nil:
		fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Identifier, r.Error)
	case r.Result == nil || r.Result.Substance == nil:
		fmt.Fprintf(os.Stderr, "- %s: no substance data\n", r.Identifier)
	case r.Result.Stored:
		fmt.Fprintf(os.Stderr, "✓ %s (CAS %d) stored\n", r.Result.Substance.Name, r.Result.Substance.CAS)
	case r.Result.SkipReason != "":
		fmt.Fprintf(os.Stderr, "✓ %s (CAS %d) %s\n", r.Result.Substance.Name, r.Result.Substance.CAS, r.Result.SkipReason)
	default:
		fmt.Fprintf(os.Stderr, "✓ %s (CAS %d)\n", r.Result.Substance.Name, r.Result.Substance.CAS)
	}
}

func writeRecord(dir string, r *pipeline.Result) error {
	data, err := json.MarshalIndent(r.Substance, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	path := filepath.Join(dir, strconv.FormatInt(r.Substance.CAS, 10)+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
