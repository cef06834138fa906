package extract

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/The-Burnes-Center/aiep-app/internal/pages"
	"github.com/The-Burnes-Center/aiep-app/internal/sections"
)

// Vision is the language-model capability the extractor depends on.
type Vision interface {
	ClassifyAndExtract(ctx context.Context, format string, image []byte) (sections.Kind, string, error)
	ExtractStructured(ctx context.Context, kind sections.Kind, aggregatedText string) (sections.Record, error)
}

// Extractor turns an ordered sequence of page images into per-section
// aggregated text plus one structured record per non-empty section.
type Extractor struct {
	vision      Vision
	concurrency int
}

func NewExtractor(vision Vision, concurrency int) *Extractor {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Extractor{vision: vision, concurrency: concurrency}
}

// Extract runs both passes. The text map always carries all seven section
// kinds, empty string for sections no page classified into. The record map
// only carries sections whose aggregated text is non-empty.
func (e *Extractor) Extract(ctx context.Context, pageImages []pages.PageImage) (map[sections.Kind]sections.Record, map[sections.Kind]string, error) {
	sectionText, err := e.classifyPages(ctx, pageImages)
	if err != nil {
		return nil, nil, err
	}

	records := make(map[sections.Kind]sections.Record)
	for _, kind := range sections.Kinds() {
		if sectionText[kind] == "" {
			continue
		}
		record, err := e.vision.ExtractStructured(ctx, kind, sectionText[kind])
		if err != nil {
			return nil, nil, fmt.Errorf("section %s: %w", kind, err)
		}
		records[kind] = record
	}
	return records, sectionText, nil
}

type pageResult struct {
	kind sections.Kind
	text string
}

// classifyPages fans classification out across pages with bounded
// concurrency. Results are collected by page index and appended in input
// order, so each section's text stays in page order.
func (e *Extractor) classifyPages(ctx context.Context, pageImages []pages.PageImage) (map[sections.Kind]string, error) {
	results := make([]pageResult, len(pageImages))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, page := range pageImages {
		i, page := i, page
		g.Go(func() error {
			kind, text, err := e.vision.ClassifyAndExtract(gCtx, page.Format, page.Data)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			results[i] = pageResult{kind: kind, text: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sectionText := make(map[sections.Kind]string, 7)
	for _, kind := range sections.Kinds() {
		sectionText[kind] = ""
	}
	for _, res := range results {
		sectionText[res.kind] += res.text
	}
	return sectionText, nil
}
