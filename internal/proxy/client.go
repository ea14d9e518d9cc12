package proxy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/quantdesk/ai-gateway/internal/catalog"
	"github.com/quantdesk/ai-gateway/internal/thinking"
)

const defaultModel = "deepseek-chat"

// connectDurationMs is the nominal duration reported for the synthetic
// "connected" thinking step.
const connectDurationMs = 500

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

type ChatResponse struct {
	ID           string     `json:"id"`
	Model        string     `json:"model"`
	Content      string     `json:"content"`
	Usage        UsageStats `json:"usage"`
	LatencyMs    int64      `json:"latencyMs"`
	FinishReason string     `json:"finishReason"`
}

// Client calls the upstream OpenAI-compatible completion endpoint.
type Client struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	streamClient  *http.Client
	fallbackLimit int
}

// NewClient builds a client. timeout bounds non-streaming calls only; the
// streaming call is cancelled through the caller's context (normally the
// downstream connection's lifetime). fallbackLimit caps how many content
// characters are fed into the thinking extractor when the model emits no
// reasoning channel.
func NewClient(baseURL, apiKey string, timeout time.Duration, fallbackLimit int) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		httpClient:    &http.Client{Timeout: timeout},
		streamClient:  &http.Client{},
		fallbackLimit: fallbackLimit,
	}
}

type upstreamRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

type upstreamUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

func (c *Client) do(ctx context.Context, client *http.Client, req ChatRequest, stream bool) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = defaultModel
	}
	body, err := json.Marshal(upstreamRequest{
		Model:       model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("encode upstream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return client.Do(httpReq)
}

// Chat performs one non-streaming completion call.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	start := time.Now()
	resp, err := c.do(ctx, c.httpClient, req, false)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s", upstreamErrorMessage(body, resp.StatusCode))
	}

	var parsed struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage upstreamUsage `json:"usage"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("upstream response has no choices")
	}

	if parsed.Model != "" {
		model = parsed.Model
	}
	usage := buildUsage(model, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens)
	return &ChatResponse{
		ID:           parsed.ID,
		Model:        model,
		Content:      parsed.Choices[0].Message.Content,
		Usage:        *usage,
		LatencyMs:    time.Since(start).Milliseconds(),
		FinishReason: parsed.Choices[0].FinishReason,
	}, nil
}

type streamFrame struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			Reasoning        string `json:"reasoning"`
			Thinking         string `json:"thinking"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *upstreamUsage `json:"usage"`
}

// ChatStream performs one streaming completion and pushes normalized events
// through emit, one at a time and in order. An emit error aborts the
// stream. Upstream failures surface as an error event, not a returned
// error; a returned error means the relay itself broke mid-stream. The
// returned UsageStats carries whatever token counts had accumulated, so the
// caller can record partial usage even on a broken stream. It is nil when
// no upstream call completed at all.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, emit func(StreamEvent) error) (*UsageStats, error) {
	model := req.Model
	if model == "" {
		model = defaultModel
	}
	desc, _ := catalog.GetModel(model)

	if desc.SupportsThinking {
		if err := emit(thinkingEvent(&thinking.Step{Step: 0, Title: "启动推理", Status: thinking.StatusProcessing})); err != nil {
			return nil, err
		}
	}

	resp, err := c.do(ctx, c.streamClient, req, true)
	if err != nil {
		emit(StreamEvent{Type: EventError, Error: "failed to reach upstream model"})
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		emit(StreamEvent{Type: EventError, Error: upstreamErrorMessage(body, resp.StatusCode)})
		return nil, nil
	}

	if desc.SupportsThinking {
		if err := emit(thinkingEvent(&thinking.Step{Step: 0, Title: "启动推理", Status: thinking.StatusCompleted, DurationMs: connectDurationMs})); err != nil {
			return nil, err
		}
	}

	var extractor *thinking.Extractor
	if desc.SupportsThinking {
		extractor = thinking.NewExtractor()
	}

	var inputTokens, outputTokens int64
	hasReceivedReasoning := false
	fallbackChars := 0

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024) // 1MB buffer

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var frame streamFrame
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			// One corrupt frame must never abort the stream.
			continue
		}

		// Upstream resends cumulative totals, not deltas.
		if frame.Usage != nil {
			inputTokens = frame.Usage.PromptTokens
			outputTokens = frame.Usage.CompletionTokens
		}
		if len(frame.Choices) == 0 {
			continue
		}

		delta := frame.Choices[0].Delta
		reasoning := delta.Reasoning
		if reasoning == "" {
			reasoning = delta.Thinking
		}
		if reasoning == "" {
			reasoning = delta.ReasoningContent
		}

		if reasoning != "" && extractor != nil {
			hasReceivedReasoning = true
			if step := extractor.ProcessChunk(reasoning); step != nil {
				if err := emit(thinkingEvent(step)); err != nil {
					return buildUsage(model, inputTokens, outputTokens), err
				}
			}
		}

		if delta.Content != "" {
			// Content is relayed immediately, never buffered for
			// step detection.
			if err := emit(StreamEvent{Type: EventContent, Content: delta.Content}); err != nil {
				return buildUsage(model, inputTokens, outputTokens), err
			}
			if extractor != nil && !hasReceivedReasoning && fallbackChars < c.fallbackLimit {
				fallbackChars += utf8.RuneCountInString(delta.Content)
				if step := extractor.ProcessChunk(delta.Content); step != nil {
					if err := emit(thinkingEvent(step)); err != nil {
						return buildUsage(model, inputTokens, outputTokens), err
					}
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return buildUsage(model, inputTokens, outputTokens), fmt.Errorf("read upstream stream: %w", err)
	}

	if extractor != nil {
		if step := extractor.Finalize(); step != nil {
			if err := emit(thinkingEvent(step)); err != nil {
				return buildUsage(model, inputTokens, outputTokens), err
			}
		}
		if !extractor.HasContent() {
			step := &thinking.Step{Step: 1, Title: "生成回复", Status: thinking.StatusCompleted}
			if err := emit(thinkingEvent(step)); err != nil {
				return buildUsage(model, inputTokens, outputTokens), err
			}
		}
	}

	usage := buildUsage(model, inputTokens, outputTokens)
	if err := emit(StreamEvent{Type: EventUsage, Usage: usage}); err != nil {
		return usage, err
	}
	if err := emit(StreamEvent{Type: EventDone}); err != nil {
		return usage, err
	}
	return usage, nil
}

func buildUsage(model string, inputTokens, outputTokens int64) *UsageStats {
	var cost float64
	if m, ok := catalog.GetModel(model); ok {
		cost = (float64(inputTokens)*m.InputPrice + float64(outputTokens)*m.OutputPrice) / 1_000_000
	}
	return &UsageStats{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		TotalCost:    cost,
		Model:        model,
		Timestamp:    time.Now().UTC(),
	}
}

func upstreamErrorMessage(body []byte, statusCode int) string {
	var withObject struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &withObject) == nil && withObject.Error.Message != "" {
		return withObject.Error.Message
	}
	var withString struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &withString) == nil && withString.Error != "" {
		return withString.Error
	}
	return fmt.Sprintf("upstream returned status %d", statusCode)
}
