package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"github.com/The-Burnes-Center/aiep-app/internal/sections"
)

// ErrExtraction marks a classification or structured-extraction call that
// failed or returned an unparseable result.
var ErrExtraction = errors.New("extraction failed")

// VisionClient talks to Gemini for page classification and structured
// section extraction.
type VisionClient struct {
	client      *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	callTimeout time.Duration
	maxRetries  int
}

// PageResult is the per-page classification output: the single section the
// page belongs to and its full text in reading order.
type PageResult struct {
	SectionType string `json:"section_type"`
	FullText    string `json:"full_text"`
}

func NewVisionClient(ctx context.Context, apiKey, model string, callTimeout time.Duration, maxRetries int) (*VisionClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiVision",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &VisionClient{
		client:      client,
		model:       model,
		breaker:     breaker,
		rateLimiter: rate.NewLimiter(rate.Limit(0.15), 2),
		callTimeout: callTimeout,
		maxRetries:  maxRetries,
	}, nil
}

// ClassifyAndExtract classifies one page image into exactly one section kind
// and returns the page's full text in reading order.
func (vc *VisionClient) ClassifyAndExtract(ctx context.Context, format string, image []byte) (sections.Kind, string, error) {
	tracer := otel.Tracer("gemini-vision")
	ctx, span := tracer.Start(ctx, "gemini.classify_page")
	defer span.End()
	span.SetAttributes(
		attribute.Int("gemini.image_bytes", len(image)),
		attribute.String("gemini.model", vc.model),
	)

	model := vc.client.GenerativeModel(vc.model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = pageSchema()
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(
			"Given an image of a page of the IEP, identify which section the page belongs under and attempt to extract the full content in logical order.",
		)},
	}

	raw, err := vc.generate(ctx, model, genai.ImageData(format, image))
	if err != nil {
		return "", "", fmt.Errorf("%w: classify page: %v", ErrExtraction, err)
	}

	var page PageResult
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		return "", "", fmt.Errorf("%w: unparseable page result: %v", ErrExtraction, err)
	}
	kind, err := sections.ParseKind(page.SectionType)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	span.SetAttributes(attribute.String("iep.section", string(kind)))
	return kind, page.FullText, nil
}

// ExtractStructured runs the per-section structured pass over a section's
// aggregated text, returning the kind-specific record.
func (vc *VisionClient) ExtractStructured(ctx context.Context, kind sections.Kind, aggregatedText string) (sections.Record, error) {
	tracer := otel.Tracer("gemini-vision")
	ctx, span := tracer.Start(ctx, "gemini.extract_section")
	defer span.End()
	span.SetAttributes(
		attribute.String("iep.section", string(kind)),
		attribute.Int("iep.section_chars", len(aggregatedText)),
	)

	model := vc.client.GenerativeModel(vc.model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = recordSchema(kind)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(fmt.Sprintf(
			"You are given a full view of all the content under the Section '%s' on a IEP. Extract key points and organize this information into the target model. Use simple language equivalent to a 5th grade reading level. Limit field values to under 3 sentences.",
			kind,
		))},
	}

	raw, err := vc.generate(ctx, model, genai.Text("Aggregate Text: "+aggregatedText))
	if err != nil {
		return nil, fmt.Errorf("%w: extract %s: %v", ErrExtraction, kind, err)
	}

	record, err := sections.UnmarshalRecord(kind, []byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	return record, nil
}

// generate runs one model call through the rate limiter, circuit breaker and
// bounded retry, returning the raw response text.
func (vc *VisionClient) generate(ctx context.Context, model *genai.GenerativeModel, parts ...genai.Part) (string, error) {
	var out string
	err := withRetries(ctx, vc.maxRetries, func() error {
		if err := vc.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, vc.callTimeout)
		defer cancel()

		result, err := vc.breaker.Execute(func() (interface{}, error) {
			return model.GenerateContent(callCtx, parts...)
		})
		if err != nil {
			return err
		}

		text := responseText(result.(*genai.GenerateContentResponse))
		if text == "" {
			return errors.New("empty model response")
		}
		out = text
		return nil
	})
	return out, err
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	text := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	return text
}

// Close the underlying client.
func (vc *VisionClient) Close() error {
	if vc.client != nil {
		return vc.client.Close()
	}
	return nil
}
