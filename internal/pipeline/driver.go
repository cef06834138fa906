package pipeline

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/The-Burnes-Center/aiep-app/internal/pages"
	"github.com/The-Burnes-Center/aiep-app/internal/sections"
	"github.com/The-Burnes-Center/aiep-app/internal/vectorstore"
	"github.com/The-Burnes-Center/aiep-app/models"
)

// Normalizer converts uploaded files to page images.
type Normalizer interface {
	Normalize(ctx context.Context, files []models.UploadedFile) ([]pages.PageImage, error)
}

// SectionExtractor runs classification and the structured pass.
type SectionExtractor interface {
	Extract(ctx context.Context, pageImages []pages.PageImage) (map[sections.Kind]sections.Record, map[sections.Kind]string, error)
}

// Chunker splits aggregated section text into identified chunks.
type Chunker interface {
	ChunkSections(sectionText map[sections.Kind]string) map[string]string
}

// JobStore reports terminal job status back to the record store.
type JobStore interface {
	CompleteJob(ctx context.Context, token, jobID string, result *models.JobResult) error
	FailJob(ctx context.Context, token, jobID, reason string) error
}

// Driver sequences one job through Normalize, Extract, Chunk, Index and the
// final status report. It is the only place cross-stage failure propagation
// is coordinated.
type Driver struct {
	renderer  Normalizer
	extractor SectionExtractor
	chunker   Chunker
	indexer   *Indexer
	jobs      JobStore
}

func NewDriver(renderer Normalizer, extractor SectionExtractor, chunker Chunker, indexer *Indexer, jobs JobStore) *Driver {
	return &Driver{
		renderer:  renderer,
		extractor: extractor,
		chunker:   chunker,
		indexer:   indexer,
		jobs:      jobs,
	}
}

// Run processes one job end to end. The caller token authorizes the final
// status patch. Every failure path reports a terminal failed status so the
// job never stays silently started.
func (d *Driver) Run(ctx context.Context, jobID, token string, files []models.UploadedFile) error {
	tracer := otel.Tracer("pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", jobID),
		attribute.Int("job.files", len(files)),
	)

	collection, err := vectorstore.CollectionName(jobID)
	if err != nil {
		return d.fail(ctx, jobID, token, fmt.Errorf("invalid job id: %w", err))
	}

	pageImages, err := d.renderer.Normalize(ctx, files)
	if err != nil {
		return d.fail(ctx, jobID, token, fmt.Errorf("normalize: %w", err))
	}
	span.SetAttributes(attribute.Int("job.pages", len(pageImages)))

	records, sectionText, err := d.extractor.Extract(ctx, pageImages)
	if err != nil {
		return d.fail(ctx, jobID, token, err)
	}

	chunks := d.chunker.ChunkSections(sectionText)
	span.SetAttributes(attribute.Int("job.chunks", len(chunks)))

	if err := d.indexer.Index(ctx, collection, chunks); err != nil {
		return d.fail(ctx, jobID, token, err)
	}

	result := &models.JobResult{Result: records}
	if err := d.jobs.CompleteJob(ctx, token, jobID, result); err != nil {
		return d.fail(ctx, jobID, token, err)
	}

	log.Printf("Job %s completed: %d pages, %d chunks", jobID, len(pageImages), len(chunks))
	return nil
}

// fail records the terminal failed status and returns the stage error. A
// failing patch is logged, not escalated, so the original cause surfaces to
// the task queue for retry accounting.
func (d *Driver) fail(ctx context.Context, jobID, token string, cause error) error {
	log.Printf("Job %s failed: %v", jobID, cause)
	if patchErr := d.jobs.FailJob(ctx, token, jobID, cause.Error()); patchErr != nil {
		log.Printf("Job %s: failed to record failure: %v", jobID, patchErr)
	}
	return cause
}
