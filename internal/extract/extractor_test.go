package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/The-Burnes-Center/aiep-app/internal/pages"
	"github.com/The-Burnes-Center/aiep-app/internal/sections"
)

// --- mock vision ---

type mockVision struct {
	mu           sync.Mutex
	classifyFn   func(image []byte) (sections.Kind, string, error)
	structuredFn func(kind sections.Kind, text string) (sections.Record, error)
	structured   []sections.Kind
}

func (m *mockVision) ClassifyAndExtract(ctx context.Context, format string, image []byte) (sections.Kind, string, error) {
	return m.classifyFn(image)
}

func (m *mockVision) ExtractStructured(ctx context.Context, kind sections.Kind, text string) (sections.Record, error) {
	m.mu.Lock()
	m.structured = append(m.structured, kind)
	m.mu.Unlock()
	if m.structuredFn != nil {
		return m.structuredFn(kind, text)
	}
	return &sections.AssessmentPlan{}, nil
}

func pageData(i int) pages.PageImage {
	return pages.PageImage{Format: "png", Data: []byte(fmt.Sprintf("page-%d", i))}
}

func TestExtractAggregatesInPageOrder(t *testing.T) {
	// Pages 0 and 2 land in AnnualGoals, page 1 in AssessmentPlan. The goal
	// text must come out in page order despite concurrent classification.
	vision := &mockVision{
		classifyFn: func(image []byte) (sections.Kind, string, error) {
			switch string(image) {
			case "page-0":
				return sections.KindAnnualGoals, "first. ", nil
			case "page-1":
				return sections.KindAssessmentPlan, "assess. ", nil
			default:
				return sections.KindAnnualGoals, "second. ", nil
			}
		},
		structuredFn: func(kind sections.Kind, text string) (sections.Record, error) {
			if kind == sections.KindAnnualGoals && !strings.HasPrefix(text, "first.") {
				return nil, fmt.Errorf("goal text out of order: %q", text)
			}
			return &sections.AnnualGoals{}, nil
		},
	}

	e := NewExtractor(vision, 4)
	records, text, err := e.Extract(context.Background(), []pages.PageImage{pageData(0), pageData(1), pageData(2)})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if got := text[sections.KindAnnualGoals]; got != "first. second. " {
		t.Errorf("AnnualGoals text = %q", got)
	}
	if got := text[sections.KindAssessmentPlan]; got != "assess. " {
		t.Errorf("AssessmentPlan text = %q", got)
	}

	// All seven kinds present in the text map, only two populated.
	if len(text) != 7 {
		t.Errorf("text map has %d kinds, want 7", len(text))
	}
	populated := 0
	for _, v := range text {
		if v != "" {
			populated++
		}
	}
	if populated != 2 {
		t.Errorf("%d populated sections, want 2", populated)
	}

	// Structured pass only for non-empty sections.
	if len(records) != 2 {
		t.Errorf("got %d records, want 2: %v", len(records), records)
	}
	if _, ok := records[sections.KindFAPEServiceOffer]; ok {
		t.Error("empty section must not have a structured record")
	}
}

func TestExtractSkipsStructuredForEmptySections(t *testing.T) {
	vision := &mockVision{
		classifyFn: func(image []byte) (sections.Kind, string, error) {
			return sections.KindAssessmentPlan, "The student will be assessed for reading.", nil
		},
	}

	e := NewExtractor(vision, 2)
	records, _, err := e.Extract(context.Background(), []pages.PageImage{pageData(0)})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(vision.structured) != 1 || vision.structured[0] != sections.KindAssessmentPlan {
		t.Errorf("structured calls = %v, want exactly one for AssessmentPlan", vision.structured)
	}
	if len(records) != 1 {
		t.Errorf("records = %v", records)
	}
}

func TestExtractClassificationFailureFailsWholeJob(t *testing.T) {
	vision := &mockVision{
		classifyFn: func(image []byte) (sections.Kind, string, error) {
			if string(image) == "page-1" {
				return "", "", errors.New("model unavailable")
			}
			return sections.KindAnnualGoals, "text. ", nil
		},
	}

	e := NewExtractor(vision, 1)
	_, _, err := e.Extract(context.Background(), []pages.PageImage{pageData(0), pageData(1)})
	if err == nil {
		t.Fatal("expected classification failure to propagate")
	}
	if len(vision.structured) != 0 {
		t.Errorf("structured pass ran despite stage A failure: %v", vision.structured)
	}
}

func TestExtractNoPages(t *testing.T) {
	vision := &mockVision{
		classifyFn: func(image []byte) (sections.Kind, string, error) {
			t.Fatal("classify must not be called with no pages")
			return "", "", nil
		},
	}
	e := NewExtractor(vision, 2)
	records, text, err := e.Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %v", records)
	}
	if len(text) != 7 {
		t.Errorf("text map has %d kinds, want 7", len(text))
	}
}
