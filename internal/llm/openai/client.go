package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"github.com/joseph-ayodele/bookscan/internal/common"
	"github.com/joseph-ayodele/bookscan/internal/llm"
)

var _ llm.Client = (*Client)(nil)

// RateLimitError is returned when the API still answers 429 after SDK retries.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// Complete sends the images and instructions with a strict json_schema response format
// and returns the reply content. Validation of the content is the caller's job.
func (c *Client) Complete(ctx context.Context, req llm.Request) ([]byte, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	c.logger.Info("llm.call.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"schema", req.Name,
		"images", len(req.Images),
		"has_context", req.Context != "",
	)

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Instructions),
	}
	if req.Context != "" {
		parts = append(parts, openai.TextContentPart(req.Context))
	}
	for _, img := range req.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    img.DataURL(),
			Detail: "high",
		}))
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.Name,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = openai.Float(c.cfg.Temperature)
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		err = mapOpenAIError(err)
		c.logger.Error("llm.call.error",
			"req_id", rid, "schema", req.Name, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("llm.call.no_choices",
			"req_id", rid, "schema", req.Name,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, errors.New("no choices in openai response")
	}

	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		c.logger.Warn("llm.call.refusal",
			"req_id", rid, "schema", req.Name, "refusal", msg.Refusal,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("model refused: %s", msg.Refusal)
	}
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return nil, errors.New("empty content in openai response")
	}

	c.logger.Info("llm.call.ok",
		"req_id", rid,
		"schema", req.Name,
		"finish_reason", resp.Choices[0].FinishReason,
		"content_bytes", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return []byte(content), nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			var retryAfter time.Duration
			if apiErr.Response != nil {
				if secs, perr := strconv.Atoi(apiErr.Response.Header.Get("Retry-After")); perr == nil {
					retryAfter = time.Duration(secs) * time.Second
				}
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("openai rate limited: %s", apiErr.Message),
				RetryAfter: retryAfter,
			}
		}
		if apiErr.Message != "" {
			return fmt.Errorf("openai error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("openai error (status %d)", apiErr.StatusCode)
	}
	return fmt.Errorf("openai request: %w", err)
}
