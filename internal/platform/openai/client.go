package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/notebook-backend/internal/pkg/httpx"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

// ImageInput is the normalized multimodal image input used by Client.
type ImageInput struct {
	// Can be https://... or data:image/...;base64,...
	ImageURL string
	// Optional. Some models may ignore; kept for compatibility.
	Detail string // "low" | "high"
}

// Client is the model-API client the rest of the backend talks through.
// Retry with jittered exponential backoff lives here; callers only see the
// final error.
type Client interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)

	GenerateText(ctx context.Context, system string, user string) (string, error)

	// Structured outputs (json_schema)
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)

	// Multimodal variants route to the vision model.
	GenerateTextWithImages(ctx context.Context, system string, user string, images []ImageInput) (string, error)
	GenerateJSONWithImages(ctx context.Context, system string, user string, images []ImageInput, schemaName string, schema map[string]any) (map[string]any, error)
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	visionModel string
	embedModel  string
	httpClient  *http.Client

	maxAttempts int

	temperature        *float64
	disableTemperature bool

	// Models that rejected the temperature parameter; omitted thereafter.
	noTempMu   sync.Mutex
	noTempSeen map[string]bool
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = "gpt-5-mini"
	}
	visionModel := strings.TrimSpace(os.Getenv("OPENAI_VISION_MODEL"))
	if visionModel == "" {
		visionModel = model
	}
	embed := strings.TrimSpace(os.Getenv("OPENAI_EMBED_MODEL"))
	if embed == "" {
		embed = "text-embedding-3-small"
	}

	timeoutSec := 120
	if v := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxAttempts := 3
	if v := strings.TrimSpace(os.Getenv("OPENAI_MAX_RETRIES")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			maxAttempts = parsed
		}
	}

	disableTemperature := false
	tempPtr := (*float64)(nil)
	if v := strings.TrimSpace(os.Getenv("OPENAI_TEMPERATURE")); v != "" {
		low := strings.ToLower(v)
		if low == "off" || low == "none" || low == "false" {
			disableTemperature = true
		} else if f, err := strconv.ParseFloat(v, 64); err == nil {
			tempPtr = &f
		}
	} else {
		temp := 0.2
		tempPtr = &temp
	}
	if disableTemperature {
		tempPtr = nil
	}

	return &client{
		log:                log.With("service", "OpenAIClient"),
		baseURL:            baseURL,
		apiKey:             apiKey,
		model:              model,
		visionModel:        visionModel,
		embedModel:         embed,
		httpClient:         &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxAttempts:        maxAttempts,
		temperature:        tempPtr,
		disableTemperature: disableTemperature,
		noTempSeen:         map[string]bool{},
	}, nil
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxAttempts {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

// -------------------- Embeddings --------------------

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}

	clean := make([]string, len(inputs))
	for i := range inputs {
		s := strings.TrimSpace(inputs[i])
		if s == "" {
			s = " "
		}
		clean[i] = s
	}

	req := embeddingsRequest{
		Model: c.embedModel,
		Input: clean,
	}

	// The API documents index-addressed results; reassemble by index and
	// retry once if the response leaves any slot empty.
	for pass := 0; pass < 2; pass++ {
		var resp embeddingsResponse
		if err := c.do(ctx, "POST", "/v1/embeddings", req, &resp); err != nil {
			return nil, err
		}
		out := assembleEmbeddings(resp, len(clean))
		if !hasMissingEmbeddings(out) {
			return out, nil
		}
		c.log.Warn("Embeddings response missing indices",
			"requested", len(clean),
			"returned", len(resp.Data),
			"model", c.embedModel,
			"pass", pass,
		)
	}
	return nil, fmt.Errorf("openai embeddings missing indices after retry: requested=%d model=%s", len(clean), c.embedModel)
}

func assembleEmbeddings(resp embeddingsResponse, n int) [][]float32 {
	out := make([][]float32, n)
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		if d.Index >= 0 && d.Index < n {
			out[d.Index] = vec
		}
	}
	// Some compatible endpoints omit indices but preserve order.
	if hasMissingEmbeddings(out) && len(resp.Data) == n {
		for i := 0; i < n; i++ {
			if out[i] != nil {
				continue
			}
			d := resp.Data[i]
			vec := make([]float32, len(d.Embedding))
			for j, f := range d.Embedding {
				vec[j] = float32(f)
			}
			out[i] = vec
		}
	}
	return out
}

func hasMissingEmbeddings(v [][]float32) bool {
	for i := range v {
		if len(v[i]) == 0 {
			return true
		}
	}
	return false
}

// -------------------- Responses API (text + structured + multimodal) --------------------

type responsesRequest struct {
	Model string `json:"model"`

	Input []responsesInput `json:"input"`

	Text struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"`
}

type responsesInput struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

func (c *client) applyTemperature(req *responsesRequest) {
	if c.disableTemperature || c.temperature == nil {
		return
	}
	if c.modelIsNoTemp(req.Model) {
		return
	}
	req.Temperature = c.temperature
}

func (c *client) modelIsNoTemp(model string) bool {
	c.noTempMu.Lock()
	defer c.noTempMu.Unlock()
	return c.noTempSeen[strings.ToLower(strings.TrimSpace(model))]
}

func (c *client) noteNoTempModel(model string) {
	c.noTempMu.Lock()
	defer c.noTempMu.Unlock()
	c.noTempSeen[strings.ToLower(strings.TrimSpace(model))] = true
}

func isUnsupportedTemperatureParam(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "temperature") {
		return false
	}
	return strings.Contains(msg, "unsupported parameter") ||
		strings.Contains(msg, "unknown parameter") ||
		strings.Contains(msg, "not supported") ||
		strings.Contains(msg, "does not support") ||
		strings.Contains(msg, "only the default") ||
		strings.Contains(msg, "unsupported_value") ||
		strings.Contains(msg, "invalid_request_error")
}

// doResponsesWithTempFallback retries exactly once without temperature if the
// model rejects it, and remembers the model so later calls omit it up front.
func (c *client) doResponsesWithTempFallback(ctx context.Context, req *responsesRequest, out any) error {
	err := c.do(ctx, "POST", "/v1/responses", req, out)
	if err == nil {
		return nil
	}
	if req.Temperature == nil || !isUnsupportedTemperatureParam(err) {
		return err
	}
	c.noteNoTempModel(req.Model)
	req.Temperature = nil
	return c.do(ctx, "POST", "/v1/responses", req, out)
}

func (c *client) generate(ctx context.Context, model, system string, userContent any, format map[string]any) (string, error) {
	req := responsesRequest{
		Model: model,
		Input: []responsesInput{
			{Role: "system", Content: system},
			{Role: "user", Content: userContent},
		},
	}
	c.applyTemperature(&req)
	if format != nil {
		req.Text.Format = format
	}

	var resp responsesResponse
	if err := c.doResponsesWithTempFallback(ctx, &req, &resp); err != nil {
		return "", err
	}
	if resp.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", resp.Refusal)
	}

	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no output_text found in response")
	}
	return text, nil
}

func jsonSchemaFormat(schemaName string, schema map[string]any) map[string]any {
	return map[string]any{
		"type":   "json_schema",
		"name":   schemaName,
		"schema": schema,
		"strict": true,
	}
}

func imageContent(user string, images []ImageInput) []map[string]any {
	content := make([]map[string]any, 0, 1+len(images))
	content = append(content, map[string]any{
		"type": "input_text",
		"text": user,
	})
	for _, img := range images {
		u := strings.TrimSpace(img.ImageURL)
		if u == "" {
			continue
		}
		item := map[string]any{
			"type":      "input_image",
			"image_url": u,
		}
		if strings.TrimSpace(img.Detail) != "" {
			item["detail"] = strings.TrimSpace(img.Detail)
		}
		content = append(content, item)
	}
	return content
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	return c.generate(ctx, c.model, system, user, nil)
}

func (c *client) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
	if schemaName == "" {
		return nil, errors.New("schemaName required")
	}
	if schema == nil {
		return nil, errors.New("schema required")
	}

	text, err := c.generate(ctx, c.model, system, user, jsonSchemaFormat(schemaName, schema))
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w; text=%s", err, text)
	}
	return obj, nil
}

func (c *client) GenerateTextWithImages(ctx context.Context, system string, user string, images []ImageInput) (string, error) {
	content := imageContent(user, images)
	if len(content) == 1 {
		return c.GenerateText(ctx, system, user)
	}
	return c.generate(ctx, c.visionModel, system, content, nil)
}

func (c *client) GenerateJSONWithImages(ctx context.Context, system string, user string, images []ImageInput, schemaName string, schema map[string]any) (map[string]any, error) {
	if schemaName == "" {
		return nil, errors.New("schemaName required")
	}
	if schema == nil {
		return nil, errors.New("schema required")
	}

	content := imageContent(user, images)
	if len(content) == 1 {
		return c.GenerateJSON(ctx, system, user, schemaName, schema)
	}

	text, err := c.generate(ctx, c.visionModel, system, content, jsonSchemaFormat(schemaName, schema))
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w; text=%s", err, text)
	}
	return obj, nil
}
