package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/document"
)

const defaultBatchSize = 1000

// Indexer stores encoded documents; search.Service implements it.
type Indexer interface {
	Index(ctx context.Context, docs []document.Document, searchContext string) (int, error)
}

type PipelineConfig struct {
	Name      string
	BatchSize int
	// Context is the search context contextualized fields are written under.
	Context string
}

// Stats summarizes a pipeline run.
type Stats struct {
	Indexed  int
	Errors   int
	Batches  int
	Duration time.Duration
}

// Pipeline streams rows from a reader, maps them to documents and indexes
// them in batches. Child rows must follow their parent row.
type Pipeline struct {
	reader  *CSVReader
	mapper  *Mapper
	indexer Indexer
	config  *PipelineConfig
}

type PipelineOption func(pipeline *Pipeline)

func WithBatchSize(size int) PipelineOption {
	return func(pipeline *Pipeline) {
		if size > 0 {
			pipeline.config.BatchSize = size
		}
	}
}

func WithSearchContext(context string) PipelineOption {
	return func(pipeline *Pipeline) {
		pipeline.config.Context = context
	}
}

func WithName(name string) PipelineOption {
	return func(pipeline *Pipeline) {
		pipeline.config.Name = name
	}
}

func NewPipeline(reader *CSVReader, mapper *Mapper, indexer Indexer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		reader:  reader,
		mapper:  mapper,
		indexer: indexer,
		config: &PipelineConfig{
			Name:      "csv-import",
			BatchSize: defaultBatchSize,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run imports every row. Rows that fail to map are logged and counted; an
// indexing failure stops the run.
func (p *Pipeline) Run(ctx context.Context) (stats Stats, err error) {
	start := time.Now()
	slog.Info("Starting pipeline run",
		"pipeline", p.config.Name,
		"batch_size", p.config.BatchSize,
	)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	rows, err := p.reader.Stream(ctx)
	if err != nil {
		slog.Error("Error opening dataset", "error", err, "pipeline", p.config.Name)
		return stats, err
	}

	var (
		batch   []document.Document
		current *document.Document
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := p.indexer.Index(ctx, batch, p.config.Context)
		if err != nil {
			slog.Error("Error indexing batch", "error", err, "count", len(batch), "pipeline", p.config.Name)
			return err
		}
		stats.Indexed += n
		stats.Batches++
		slog.Info("Batch indexed", "count", n, "batch", stats.Batches, "pipeline", p.config.Name)
		batch = nil
		return nil
	}
	// closeParent moves the parent being assembled into the batch.
	closeParent := func() error {
		if current == nil {
			return nil
		}
		batch = append(batch, *current)
		current = nil
		if len(batch) >= p.config.BatchSize {
			return flush()
		}
		return nil
	}

	defer func() {
		stats.Duration = time.Since(start)
		slog.Info("Pipeline run completed",
			"pipeline", p.config.Name,
			"indexed", stats.Indexed,
			"errors", stats.Errors,
			"batches", stats.Batches,
			"duration", stats.Duration,
		)
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Pipeline context cancelled, stopping import",
				"pipeline", p.config.Name,
				"pending_batch", len(batch),
			)
			return stats, ctx.Err()
		case row, ok := <-rows:
			if !ok {
				if err := closeParent(); err != nil {
					return stats, err
				}
				return stats, flush()
			}
			if row.Err != nil {
				slog.Error("Error reading row", "error", row.Err, "pipeline", p.config.Name)
				stats.Errors++
				continue
			}

			m, err := p.mapper.Map(row)
			if err != nil {
				slog.Error("Error mapping row", "error", err, "pipeline", p.config.Name)
				stats.Errors++
				continue
			}
			if m.ParentID == "" {
				if err := closeParent(); err != nil {
					return stats, err
				}
				doc := m.Document
				current = &doc
				continue
			}
			if current == nil || current.ID != m.ParentID {
				slog.Error("Child row does not follow its parent",
					"line", row.Line,
					"parent_id", m.ParentID,
					"pipeline", p.config.Name,
				)
				stats.Errors++
				continue
			}
			current.Children = append(current.Children, m.Document)
		}
	}
}
