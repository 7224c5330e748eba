package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/thermobook/internal/pipeline"
)

// Processor walks and stores one substance
type Processor interface {
	Process(ctx context.Context, identifier string) (*pipeline.Result, error)
}

// SubstanceJob processes one identifier (name, CAS number or URL)
type SubstanceJob struct {
	Index      int
	Identifier string
	Processor  Processor
}

// Execute executes the substance job
func (j *SubstanceJob) Execute(ctx context.Context) Result {
	result, err := j.Processor.Process(ctx, j.Identifier)
	return &SubstanceResult{
		Index:      j.Index,
		Identifier: j.Identifier,
		Result:     result,
		Error:      err,
	}
}

// SubstanceResult is the outcome of one job. Result may be set even on error.
type SubstanceResult struct {
	Index      int
	Identifier string
	Result     *pipeline.Result
	Error      error
}

// GetError returns the error from the job
func (r *SubstanceResult) GetError() error {
	return r.Error
}

// BatchProcessor processes many identifiers concurrently.
// One failing substance never stops the others.
type BatchProcessor struct {
	processor   Processor
	concurrency int
	progress    func(*SubstanceResult)
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor Processor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// OnProgress registers fn to be called as each substance finishes
func (b *BatchProcessor) OnProgress(fn func(*SubstanceResult)) {
	b.progress = fn
}

// Process runs every identifier and returns the results in input order
func (b *BatchProcessor) Process(ctx context.Context, identifiers []string) []*SubstanceResult {
	if len(identifiers) == 0 {
		return []*SubstanceResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	if b.progress != nil {
		pool.OnResult(func(r Result) { b.progress(r.(*SubstanceResult)) })
	}
	pool.Start()

	for i, id := range identifiers {
		if !pool.Submit(&SubstanceJob{Index: i, Identifier: id, Processor: b.processor}) {
			break
		}
	}

	results := pool.Wait()

	out := make([]*SubstanceResult, len(results))
	for i, r := range results {
		out[i] = r.(*SubstanceResult)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ProcessFile reads identifiers from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*SubstanceResult, error) {
	ids, err := ReadIdentifiersFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read identifiers: %w", err)
	}

	return b.Process(ctx, ids), nil
}

// ReadIdentifiersFromFile reads one identifier per line.
// Blank lines and '#' comments are skipped; duplicates keep their first position.
func ReadIdentifiersFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}
