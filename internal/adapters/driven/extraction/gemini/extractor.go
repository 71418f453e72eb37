// Package gemini provides an extraction source adapter using the Google
// Gemini generative language API with inline PDF input.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/osinfo-labs/fiscalia/internal/core/domain"
	"github.com/osinfo-labs/fiscalia/internal/core/ports/driven"
	"github.com/osinfo-labs/fiscalia/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.ExtractionSource = (*Extractor)(nil)

// Default configuration values.
const (
	DefaultBaseURL         = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel           = "gemini-1.5-flash"
	DefaultTimeout         = 120 * time.Second
	DefaultMaxPDFSizeMB    = 100
	DefaultRequestsPerSec  = 1.0
	DefaultBurstSize       = 2
	DefaultMaxOutputTokens = 8192
)

// Config holds configuration for the Gemini extraction source.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// BaseURL is the API base URL. Can be changed to point at a proxy or
	// a test server.
	BaseURL string

	// Model is the Gemini model name (default: gemini-1.5-flash).
	Model string

	// Temperature, TopP, TopK and MaxOutputTokens are passed through as
	// generation config. Zero values fall back to API defaults except
	// MaxOutputTokens, which defaults to 8192.
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int

	// Timeout is the per-request timeout (default: 120s).
	Timeout time.Duration

	// MaxPDFSizeMB rejects documents above this size before upload
	// (default: 100).
	MaxPDFSizeMB int

	// DocumentTypes lists the document types the prompt asks the model to
	// treat as invoices. Empty falls back to the built-in list.
	DocumentTypes []string

	// RequestsPerSecond and BurstSize bound the request rate against the
	// API quota.
	RequestsPerSecond float64
	BurstSize         int
}

// Extractor reads invoice records out of PDF documents via Gemini
// document understanding. The PDF is sent inline (base64) together with
// an extraction prompt that demands a bare JSON array back.
type Extractor struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	model    string
	genCfg   generationConfig
	limiter  *rate.Limiter
	maxBytes int64
	prompt   string
}

// generateRequest is the Gemini :generateContent request format.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

// generateResponse is the Gemini :generateContent response format.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// New creates a Gemini extraction source.
func New(cfg Config) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxPDFSizeMB == 0 {
		cfg.MaxPDFSizeMB = DefaultMaxPDFSizeMB
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSec
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = DefaultBurstSize
	}

	return &Extractor{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		genCfg: generationConfig{
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
			TopK:            cfg.TopK,
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		maxBytes: int64(cfg.MaxPDFSizeMB) * 1024 * 1024,
		prompt:   buildPrompt(cfg.DocumentTypes),
	}, nil
}

// Extract sends the PDF to Gemini and parses the returned JSON array into
// invoice records. A document in which the model finds no invoice yields
// an empty slice, not an error.
func (e *Extractor) Extract(ctx context.Context, doc domain.SourceDocument) ([]domain.InvoiceRecord, error) {
	info, err := os.Stat(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", domain.ErrExtractionFailed, doc.Name, err)
	}
	if info.Size() > e.maxBytes {
		return nil, fmt.Errorf("%w: %s is %.2f MB (limit %d MB)",
			domain.ErrDocumentTooLarge, doc.Name,
			float64(info.Size())/(1024*1024), e.maxBytes/(1024*1024))
	}

	pdfBytes, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrExtractionFailed, doc.Name, err)
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}

	text, err := e.generate(ctx, pdfBytes)
	if err != nil {
		return nil, err
	}

	return e.parseRecords(doc.Name, text)
}

// generate performs one :generateContent call and returns the first
// candidate's text.
func (e *Extractor) generate(ctx context.Context, pdfBytes []byte) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: e.prompt},
				{InlineData: &inlineData{
					MimeType: "application/pdf",
					Data:     base64.StdEncoding.EncodeToString(pdfBytes),
				}},
			},
		}},
		GenerationConfig: e.genCfg,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %w", domain.ErrExtractionFailed, err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		e.baseURL, e.model, url.QueryEscape(e.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", domain.ErrExtractionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: send request: %w", domain.ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", domain.ErrExtractionFailed, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %w: status 429", domain.ErrExtractionFailed, domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: gemini status %d: %s",
			domain.ErrExtractionFailed, resp.StatusCode, truncate(string(body), 500))
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", domain.ErrExtractionFailed, err)
	}
	if genResp.Error != nil {
		return "", fmt.Errorf("%w: gemini error: %s", domain.ErrExtractionFailed, genResp.Error.Message)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: response has no candidates", domain.ErrExtractionFailed)
	}

	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

// wireInvoice is the per-invoice JSON shape the prompt requests. The
// model is not fully reliable about types: invoice numbers come back as
// strings or bare numbers, and values occasionally arrive quoted or
// malformed, so the loose fields are decoded leniently.
type wireInvoice struct {
	Erro          string          `json:"erro"`
	NumeroPagina  flexInt         `json:"numero_pagina"`
	CNPJPrestador flexString      `json:"cnpj_prestador"`
	TipoDocumento string          `json:"tipo_documento"`
	NumeroNF      *flexString     `json:"numero_nf"`
	ValorTotal    json.RawMessage `json:"valor_total"`
}

// parseRecords turns the model's text answer into invoice records.
// Markdown code fences are stripped first; a bare object is accepted as a
// one-element array. Items carrying an "erro" field are dropped: "no
// invoice found" is a valid empty result, not a failure.
func (e *Extractor) parseRecords(fileName, text string) ([]domain.InvoiceRecord, error) {
	text = stripFences(text)

	var items []wireInvoice
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		var single wireInvoice
		if err2 := json.Unmarshal([]byte(text), &single); err2 != nil {
			return nil, fmt.Errorf("%w: response is not valid JSON: %w", domain.ErrExtractionFailed, err)
		}
		items = []wireInvoice{single}
	}

	records := make([]domain.InvoiceRecord, 0, len(items))
	for _, item := range items {
		if item.Erro != "" {
			logger.Debug("Gemini reported for %s: %s", fileName, item.Erro)
			continue
		}
		rec := domain.InvoiceRecord{
			SourceDocument: fileName,
			PageNumber:     int(item.NumeroPagina),
			ProviderTaxID:  string(item.CNPJPrestador),
			DocumentType:   item.TipoDocumento,
			TotalValue:     parseMoney(item.ValorTotal),
		}
		if item.NumeroNF != nil {
			n := string(*item.NumeroNF)
			rec.InvoiceNumber = &n
		}
		records = append(records, rec)
	}
	return records, nil
}

// flexString decodes a JSON string or bare number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	return fmt.Errorf("value %s is neither string nor number", string(data))
}

// flexInt decodes a JSON number or numeric string into an int.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("value %s is not a page number", string(data))
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(d.IntPart())
	return nil
}

// parseMoney parses a monetary field that may arrive as a number, a
// quoted number, or garbage. A malformed value yields nil, never zero.
func parseMoney(raw json.RawMessage) *decimal.Decimal {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	s := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		logger.Debug("Unparseable monetary value %q: %v", s, err)
		return nil
	}
	return &d
}

// stripFences removes a surrounding markdown code fence, with or without
// the json language tag, from the model's answer.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// truncate limits a response body excerpt for error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// buildPrompt assembles the extraction prompt. The recognised document
// types are listed so operators can widen or narrow what counts as an
// invoice without a rebuild.
func buildPrompt(documentTypes []string) string {
	if len(documentTypes) == 0 {
		documentTypes = []string{
			"Nota Fiscal (qualquer tipo)",
			"DANFE (Documento Auxiliar da Nota Fiscal Eletrônica)",
			"Faturas de telefonia (operadoras)",
			"Faturas de concessionárias (Light, CEG, Rioáguas, etc.)",
		}
	}

	var b strings.Builder
	b.WriteString("Analise este documento PDF e extraia as informações de TODAS as notas fiscais encontradas.\n\n")
	b.WriteString("Os seguintes documentos são considerados nota fiscal:\n")
	for _, t := range documentTypes {
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	b.WriteString(`
Para CADA nota fiscal encontrada no documento, extraia as seguintes informações:

1. **numero_pagina**: número da página onde a nota fiscal se encontra
2. **cnpj_prestador**: CNPJ do prestador de serviço (somente números)
3. **tipo_documento**: tipo do documento (Nota Fiscal, DANFE, Fatura Telefonia, Fatura Concessionária, etc.)
4. **numero_nf**: número da nota fiscal
5. **valor_total**: valor total da nota fiscal (em formato numérico, ex: 1234.56)

IMPORTANTE:
- Se houver MÚLTIPLAS notas fiscais no mesmo PDF, retorne uma lista com todas elas
- Se NÃO encontrar nenhuma nota fiscal, retorne apenas: [{"erro": "nota fiscal não encontrada"}]

Retorne APENAS um array JSON válido no seguinte formato (sem markdown, sem explicações, apenas o JSON):

[
  {
    "numero_pagina": 1,
    "cnpj_prestador": "12345678000190",
    "tipo_documento": "DANFE",
    "numero_nf": "12345",
    "valor_total": 1500.00
  }
]`)
	return b.String()
}

// Close releases resources.
func (e *Extractor) Close() error {
	return nil
}
