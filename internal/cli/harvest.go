package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/thermobook/internal/harvest"
	"github.com/ppiankov/thermobook/internal/pipeline"
	"github.com/spf13/cobra"
)

// List page sources
const (
	sourceWikipedia = "wikipedia"
	sourceNames     = "names"
)

var (
	harvestFetch       fetchFlags
	harvestSource      string
	harvestFormat      string
	harvestOut         string
	harvestConcurrency int
	harvestTimeout     time.Duration
)

// harvestCmd represents the harvest command
var harvestCmd = &cobra.Command{
	Use:   "harvest <list-url>...",
	Short: "Collect WebBook root page URLs from list pages",
	Long: `Harvest turns third-party list pages into WebBook root page URLs:
- wikipedia: visit every article of a Wikipedia "List of ..." page and
  build a CAS number URL from its CommonChemistry link
- names: read compound names from the second column of a table page and
  build a name query URL

Links are deduplicated in discovery order. The output feeds 'thermobook batch'.

Example:
  thermobook harvest https://en.wikipedia.org/wiki/List_of_inorganic_compounds -o links.txt
  thermobook harvest https://example.com/compounds --source names --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(harvestCmd)

	harvestCmd.Flags().StringVar(&harvestSource, "source", sourceWikipedia, "list page kind (wikipedia, names)")
	harvestCmd.Flags().StringVar(&harvestFormat, "format", harvest.FormatText, "output format (text, json)")
	harvestCmd.Flags().StringVarP(&harvestOut, "output", "o", "", "output path (default stdout)")
	harvestCmd.Flags().IntVar(&harvestConcurrency, "concurrency", 0, "concurrent article fetches (default from config)")
	harvestCmd.Flags().DurationVar(&harvestTimeout, "timeout", 30*time.Minute, "total timeout for harvesting")
	harvestFetch.register(harvestCmd)
}

func runHarvest(cmd *cobra.Command, args []string) (err error) {
	if harvestSource != sourceWikipedia && harvestSource != sourceNames {
		return fmt.Errorf("unknown source %q", harvestSource)
	}
	if harvestFormat != harvest.FormatText && harvestFormat != harvest.FormatJSON {
		return fmt.Errorf("unknown format %q", harvestFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	harvestFetch.apply(cfg)
	if harvestConcurrency > 0 {
		cfg.Concurrency.Workers = harvestConcurrency
	}
	logger := newLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), harvestTimeout)
	defer cancel()

	opts := append(pipeline.ConfiguredOptions(cfg, logger), pipeline.WithLimiter(newLimiter(cfg)))
	fetcher := pipeline.NewFetcher(cfg.HTTP, opts...)
	h := harvest.NewHarvester(fetcher.FetchWithRetry, cfg.Site.BaseURL, cfg.Concurrency.Workers, logger)

	var links []string
	for _, listURL := range args {
		if verbose {
			fmt.Fprintf(os.Stderr, "⚙️  Harvesting %s (%s)\n", listURL, harvestSource)
		}

		var found []string
		var herr error
		switch harvestSource {
		case sourceWikipedia:
			found, herr = h.Wikipedia(ctx, listURL)
		case sourceNames:
			found, herr = h.NameTable(ctx, listURL)
		}
		if herr != nil {
			return fmt.Errorf("harvest %s: %w", listURL, herr)
		}

		fmt.Fprintf(os.Stderr, "✓ %s: %d links\n", listURL, len(found))
		links = append(links, found...)
	}
	links = harvest.Dedup(links)

	out := os.Stdout
	if harvestOut != "" {
		f, createErr := os.Create(harvestOut)
		if createErr != nil {
			return fmt.Errorf("create output: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output: %w", closeErr)
			}
		}()
		out = f
	}

	if err := harvest.Write(out, links, harvestFormat); err != nil {
		return fmt.Errorf("write links: %w", err)
	}
	if harvestOut != "" {
		fmt.Fprintf(os.Stderr, "✓ Wrote %d links to %s\n", len(links), harvestOut)
	}
	return nil
}
