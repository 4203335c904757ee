package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sdocherty/docflow/internal/config"
)

// Result is the standardized output of one extraction, regardless of
// provider or parse outcome.
type Result struct {
	ExtractedFields map[string]any
	Confidence      float64
	Model           string
	RawResponse     string
	Warnings        []string
	InputTokens     int
	OutputTokens    int
}

// Extractor turns document bytes into structured fields via a vision model.
// It never fails on malformed model output: parsing degrades through
// fenced-block recovery down to a raw-text wrapper.
type Extractor struct {
	provider Inferer
	model    string
	mock     bool
}

func New(cfg config.ExtractionConfig) *Extractor {
	e := &Extractor{model: cfg.Model, mock: cfg.MockMode}
	if cfg.MockMode {
		return e
	}
	switch cfg.Provider {
	case "openai":
		e.provider = NewOpenAIProvider(cfg.OpenAIKey, cfg.Model, cfg.MaxTokens)
	default:
		e.provider = NewAnthropicProvider(cfg.AnthropicKey, cfg.Model, cfg.MaxTokens)
	}
	return e
}

func (e *Extractor) Extract(ctx context.Context, data []byte, contentType string) (*Result, error) {
	if e.mock {
		return e.mockResult(), nil
	}

	mediaType := MediaType(contentType)
	inf, err := e.provider.Infer(ctx, data, mediaType, extractionPrompt)
	if err != nil {
		return nil, fmt.Errorf("infer: %w", err)
	}

	slog.Info("extraction response received",
		"model", inf.Model,
		"chars", len(inf.Text),
		"input_tokens", inf.InputTokens,
		"output_tokens", inf.OutputTokens,
	)

	fields := parseResponse(inf.Text)
	warnings := warningsFrom(fields)

	return &Result{
		ExtractedFields: fields,
		Confidence:      scoreConfidence(fields, warnings),
		Model:           inf.Model,
		RawResponse:     inf.Text,
		Warnings:        warnings,
		InputTokens:     inf.InputTokens,
		OutputTokens:    inf.OutputTokens,
	}, nil
}

// MediaType maps a MIME type to one the vision API accepts. Unknown types
// fall back to application/pdf.
func MediaType(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "application/pdf":
		return "application/pdf"
	case "image/png":
		return "image/png"
	case "image/jpeg", "image/jpg":
		return "image/jpeg"
	case "image/gif":
		return "image/gif"
	case "image/webp":
		return "image/webp"
	default:
		return "application/pdf"
	}
}

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// parseResponse applies the ordered fallback: direct JSON, then a fenced
// ```json block, then a raw-text wrapper. It never returns an error.
func parseResponse(text string) map[string]any {
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err == nil {
		return fields
	}

	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &fields); err == nil {
			return fields
		}
	}

	slog.Warn("could not parse JSON from extraction response, keeping raw text")
	return map[string]any{"raw_text": text}
}

func warningsFrom(fields map[string]any) []string {
	raw, ok := fields["warnings"].([]any)
	if !ok {
		return nil
	}
	warnings := make([]string, 0, len(raw))
	for _, w := range raw {
		if s, ok := w.(string); ok {
			warnings = append(warnings, s)
		}
	}
	return warnings
}

var nullToken = regexp.MustCompile(`\bnull\b`)

// scoreConfidence applies the quality heuristic: start at 1.0, subtract 0.1
// per warning and 0.05 per null marker in the serialized fields, clamp to
// [0, 1]. The score is advisory; no routing happens on it here.
func scoreConfidence(fields map[string]any, warnings []string) float64 {
	confidence := 1.0
	confidence -= float64(len(warnings)) * 0.1

	if serialized, err := json.Marshal(fields); err == nil {
		nulls := len(nullToken.FindAll(serialized, -1))
		confidence -= float64(nulls) * 0.05
	}

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// mockResult returns a fixed canonical sample so the full pipeline can run
// without a live model.
func (e *Extractor) mockResult() *Result {
	fields := map[string]any{
		"document_type": "invoice",
		"vendor": map[string]any{
			"name":    "Mock Company Inc.",
			"address": "123 Main St, Anytown, USA",
			"phone":   "+1-555-0123",
			"email":   "billing@mockcompany.com",
			"tax_id":  "12-3456789",
		},
		"invoice_number": "INV-2024-001",
		"date":           "2024-01-15",
		"due_date":       "2024-02-15",
		"line_items": []any{
			map[string]any{"description": "Professional Services", "quantity": 10.0, "unit_price": 150.00, "total": 1500.00},
			map[string]any{"description": "Software License", "quantity": 1.0, "unit_price": 500.00, "total": 500.00},
		},
		"subtotal":      2000.00,
		"tax":           200.00,
		"total":         2200.00,
		"currency":      "USD",
		"payment_terms": "Net 30",
		"warnings":      []any{},
	}
	return &Result{
		ExtractedFields: fields,
		Confidence:      1.0,
		Model:           "mock-extractor",
		RawResponse:     "mock response",
		Warnings:        []string{},
	}
}

const extractionPrompt = `Extract structured data from this document.

Analyze the document and extract all relevant information into a JSON structure.

For invoices/receipts, include:
- vendor: {name, address, phone, email, tax_id}
- invoice_number
- date (ISO 8601 format: YYYY-MM-DD)
- due_date (if applicable)
- line_items: [{description, quantity, unit_price, total}]
- subtotal
- tax
- total
- payment_terms
- currency

For forms/applications, include:
- form_type
- applicant: {name, address, phone, email}
- fields: {field_name: field_value}
- signatures: [{name, date, title}]
- submission_date

For general documents, include:
- document_type
- title
- date
- author
- summary
- key_entities: [{type, name, value}]
- tables: [extracted table data]

Additional requirements:
1. Return ONLY valid JSON, no markdown formatting
2. If a field is unclear or missing, set it to null
3. Include a "warnings" array with any issues (e.g., ["Date format unclear", "Total doesn't match sum"])
4. Include a "document_type" field to categorize the document
5. Validate calculations (e.g., line items should sum to subtotal)
6. Extract dates in ISO 8601 format
7. For currency values, include the currency code

Return the data as a JSON object.`
