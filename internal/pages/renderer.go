package pages

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/The-Burnes-Center/aiep-app/models"
)

// PageImage is a single-page rendering as a self-contained encoded image
// buffer, ready to hand to the vision model.
type PageImage struct {
	Format string // "png" or "jpeg"
	Data   []byte
}

// Renderer normalizes uploaded files into page images. Image files pass
// through untouched; PDFs are rasterized one PNG per page by a poppler
// render sidecar.
type Renderer struct {
	baseURL    string
	httpClient *http.Client
}

func NewRenderer(baseURL string, timeout time.Duration) *Renderer {
	if timeout == 0 {
		timeout = 5 * time.Minute // rasterizing large scans can take a while
	}
	return &Renderer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Normalize converts uploaded files to page images in file order, pages in
// document order within each file.
func (r *Renderer) Normalize(ctx context.Context, files []models.UploadedFile) ([]PageImage, error) {
	var pages []PageImage
	for _, file := range files {
		switch {
		case strings.HasSuffix(strings.ToLower(file.Filename), ".pdf"):
			rendered, err := r.renderPDF(ctx, file)
			if err != nil {
				return nil, err
			}
			pages = append(pages, rendered...)

		case hasImageSuffix(file.Filename):
			format := "png"
			if strings.Contains(strings.ToLower(file.Filename), ".jp") {
				format = "jpeg"
			}
			pages = append(pages, PageImage{Format: format, Data: file.Content})

		default:
			return nil, fmt.Errorf("unsupported file type: %s", file.Filename)
		}
	}
	return pages, nil
}

func hasImageSuffix(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".png") ||
		strings.HasSuffix(lower, ".jpg") ||
		strings.HasSuffix(lower, ".jpeg")
}

// renderPDF validates the document locally, then asks the sidecar for one
// PNG per page.
func (r *Renderer) renderPDF(ctx context.Context, file models.UploadedFile) ([]PageImage, error) {
	pageCount, err := CountPages(file.Content)
	if err != nil {
		return nil, fmt.Errorf("invalid PDF %s: %w", file.Filename, err)
	}

	rendered, err := r.callSidecar(ctx, file)
	if err != nil {
		return nil, err
	}
	if len(rendered) != pageCount {
		return nil, fmt.Errorf("render sidecar returned %d pages for %s, expected %d", len(rendered), file.Filename, pageCount)
	}
	return rendered, nil
}

// CountPages parses the PDF header and returns its page count.
func CountPages(content []byte) (int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, err
	}
	n := reader.NumPage()
	if n <= 0 {
		return 0, fmt.Errorf("document has no pages")
	}
	return n, nil
}

type renderResponse struct {
	Pages []string `json:"pages"` // base64 PNG per page, in document order
	Error string   `json:"error,omitempty"`
}

func (r *Renderer) callSidecar(ctx context.Context, file models.UploadedFile) ([]PageImage, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", file.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(file.Content); err != nil {
		return nil, fmt.Errorf("failed to copy file data: %w", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/render", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create render request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("render request failed with status %d: %s", resp.StatusCode, body)
	}

	var renderResp renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&renderResp); err != nil {
		return nil, fmt.Errorf("failed to decode render response: %w", err)
	}
	if renderResp.Error != "" {
		return nil, fmt.Errorf("render failed: %s", renderResp.Error)
	}

	pages := make([]PageImage, len(renderResp.Pages))
	for i, encoded := range renderResp.Pages {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("page %d is not valid base64: %w", i+1, err)
		}
		pages[i] = PageImage{Format: "png", Data: data}
	}
	return pages, nil
}
