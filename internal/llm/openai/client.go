package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docparser/internal/common"
	"github.com/joseph-ayodele/docparser/internal/llm"
)

var _ llm.Normalizer = (*Client)(nil)

var errNotJSON = errors.New("model content is not a JSON object")

// ExtractToCanonical implements llm.Normalizer with chat/completions in JSON mode.
// Low-confidence images are attached as a data URL next to the OCR text.
func (c *Client) ExtractToCanonical(ctx context.Context, ev llm.Evidence) ([]byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	attach, dataURL := llm.ShouldAttachImage(ev)
	c.log.Info("llm.extract.start",
		"req_id", rid,
		"request_id", common.RequestIDFromContext(ctx),
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"filename", ev.Filename,
		"text_len", len(ev.Text),
		"structured", len(ev.Structured) > 0,
		"image_attached", attach,
	)

	user := userMessage(llm.BuildExtractionPrompt(ev), dataURL)
	content, err := c.complete(ctx, rid, llm.SystemExtract, user)
	if err != nil {
		c.log.Error("llm.extract.failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	c.log.Info("llm.extract.ok", "req_id", rid, "bytes", len(content), "elapsed_ms", time.Since(start).Milliseconds())
	return content, nil
}

// Revalidate implements llm.Normalizer.
func (c *Client) Revalidate(ctx context.Context, candidate []byte, errs []string, ev llm.Evidence) ([]byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.revalidate.start", "req_id", rid, "request_id", common.RequestIDFromContext(ctx), "model", c.cfg.Model, "errors", len(errs))

	user := userMessage(llm.BuildRevalidationPrompt(candidate, errs, ev), "")
	content, err := c.complete(ctx, rid, llm.SystemRevalidate, user)
	if err != nil {
		c.log.Error("llm.revalidate.failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	c.log.Info("llm.revalidate.ok", "req_id", rid, "bytes", len(content), "elapsed_ms", time.Since(start).Milliseconds())
	return content, nil
}

func userMessage(text, dataURL string) map[string]any {
	if dataURL == "" {
		return map[string]any{"role": "user", "content": text}
	}
	return map[string]any{
		"role": "user",
		"content": []map[string]any{
			{"type": "text", "text": text},
			{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
		},
	}
}

func (c *Client) complete(ctx context.Context, rid, system string, user map[string]any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": system},
			user,
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(llm.BuildCanonicalJSONSchema())},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.log.With("req_id", rid))
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("no choices in openai response")
	}

	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))
	var obj map[string]any
	if err := json.Unmarshal(content, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotJSON, err)
	}
	return content, nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
