package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/quantdesk/ai-gateway/internal/catalog"
	"github.com/quantdesk/ai-gateway/internal/database"
	"github.com/quantdesk/ai-gateway/internal/proxy"
	"github.com/quantdesk/ai-gateway/internal/quota"
	"github.com/quantdesk/ai-gateway/internal/router"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]interface{}{"success": false, "error": msg})
}

// HealthCheck reports liveness.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Server holds the dispatch route's collaborators.
type Server struct {
	Ledger *quota.Ledger
	Client *proxy.Client
}

func NewServer(ledger *quota.Ledger, client *proxy.Client) *Server {
	return &Server{Ledger: ledger, Client: client}
}

const (
	maxTokensLimit   = 32768
	temperatureLimit = 2.0
)

type chatRequestBody struct {
	Messages      []proxy.Message `json:"messages"`
	Model         string          `json:"model,omitempty"`
	TaskType      string          `json:"taskType,omitempty"`
	MaxTokens     int             `json:"maxTokens,omitempty"`
	Temperature   float64         `json:"temperature,omitempty"`
	PreferChinese bool            `json:"preferChinese,omitempty"`
	PreferSpeed   bool            `json:"preferSpeed,omitempty"`
	PreferCost    bool            `json:"preferCost,omitempty"`
}

func (b *chatRequestBody) validate() error {
	if len(b.Messages) == 0 {
		return fmt.Errorf("messages must not be empty")
	}
	for i, m := range b.Messages {
		switch m.Role {
		case "system", "user", "assistant":
		default:
			return fmt.Errorf("messages[%d]: invalid role %q", i, m.Role)
		}
		if m.Content == "" {
			return fmt.Errorf("messages[%d]: content must not be empty", i)
		}
	}
	if b.TaskType == "" {
		b.TaskType = "chat"
	}
	if !catalog.IsTaskType(b.TaskType) {
		return fmt.Errorf("invalid taskType %q", b.TaskType)
	}
	if b.MaxTokens < 0 || b.MaxTokens > maxTokensLimit {
		return fmt.Errorf("maxTokens must be between 0 and %d", maxTokensLimit)
	}
	if b.Temperature < 0 || b.Temperature > temperatureLimit {
		return fmt.Errorf("temperature must be between 0 and %v", temperatureLimit)
	}
	return nil
}

type dispatch struct {
	userID    string
	sessionID string
	decision  router.Decision
	request   proxy.ChatRequest
}

// prepare validates the body, checks admission, and routes the model. It
// writes the error response itself and returns ok=false on rejection.
// Validation failures never touch the ledger or the upstream.
func (s *Server) prepare(w http.ResponseWriter, r *http.Request) (dispatch, bool) {
	var body chatRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return dispatch{}, false
	}
	if err := body.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return dispatch{}, false
	}

	userID := GetUserID(r.Context())
	status := s.Ledger.GetUserStatus(userID)
	if !status.CanUseAI {
		writeError(w, http.StatusTooManyRequests, "usage limit reached")
		return dispatch{}, false
	}

	var decision router.Decision
	if body.Model != "" {
		v := router.ValidateModelForTask(body.Model, body.TaskType)
		if !v.Valid {
			writeError(w, http.StatusBadRequest, "unknown model "+body.Model)
			return dispatch{}, false
		}
		decision = router.Decision{Model: body.Model, Reason: "client override", Warnings: v.Warnings}
	} else {
		decision = router.SelectModel(router.RoutingRequest{
			TaskType:      body.TaskType,
			UserTier:      status.Plan,
			PreferChinese: body.PreferChinese,
			PreferSpeed:   body.PreferSpeed,
			PreferCost:    body.PreferCost,
		})
	}

	if allowed, reason := s.Ledger.CheckModelAccess(userID, decision.Model); !allowed {
		writeError(w, http.StatusForbidden, reason)
		return dispatch{}, false
	}

	return dispatch{
		userID:    userID,
		sessionID: uuid.NewString(),
		decision:  decision,
		request: proxy.ChatRequest{
			Model:       decision.Model,
			Messages:    body.Messages,
			MaxTokens:   body.MaxTokens,
			Temperature: body.Temperature,
		},
	}, true
}

// Chat handles the non-streaming chat endpoint.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	d, ok := s.prepare(w, r)
	if !ok {
		return
	}

	resp, err := s.Client.Chat(r.Context(), d.request)
	if err != nil {
		log.Printf("Upstream chat call failed for %s: %v", d.userID, err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.Ledger.RecordUsage(d.userID, quota.Usage{
		Model:        resp.Model,
		SessionID:    d.sessionID,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		TotalCost:    resp.Usage.TotalCost,
		DurationMs:   resp.LatencyMs,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"data":      resp,
		"routing":   d.decision,
		"sessionId": d.sessionID,
	})
}

// ChatStream handles the streaming chat endpoint. Every proxy event is
// relayed as one "data: <json>" frame and the stream always ends with the
// [DONE] sentinel, whatever happened before.
func (s *Server) ChatStream(w http.ResponseWriter, r *http.Request) {
	d, ok := s.prepare(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeFrame := func(ev proxy.StreamEvent) error {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		if canFlush {
			flusher.Flush()
		}
		return nil
	}

	usage, err := s.Client.ChatStream(r.Context(), d.request, writeFrame)
	if err != nil {
		log.Printf("Stream relay for %s interrupted: %v", d.userID, err)
		writeFrame(proxy.StreamEvent{Type: proxy.EventError, Error: "stream interrupted"})
	}
	if usage != nil {
		s.Ledger.RecordUsage(d.userID, quota.Usage{
			Model:        usage.Model,
			SessionID:    d.sessionID,
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
			TotalCost:    usage.TotalCost,
			Streamed:     true,
		})
	}

	io.WriteString(w, "data: [DONE]\n\n")
	if canFlush {
		flusher.Flush()
	}
}

// Models lists the catalog.
func (s *Server) Models(w http.ResponseWriter, r *http.Request) {
	type modelView struct {
		ID                string   `json:"id"`
		Tier              string   `json:"tier"`
		Capabilities      []string `json:"capabilities"`
		InputPrice        float64  `json:"inputPrice"`
		OutputPrice       float64  `json:"outputPrice"`
		SupportsStreaming bool     `json:"supportsStreaming"`
		SupportsThinking  bool     `json:"supportsThinking"`
	}
	models := catalog.AllModels()
	views := make([]modelView, 0, len(models))
	for _, m := range models {
		views = append(views, modelView{
			ID:                m.ID,
			Tier:              string(m.Tier),
			Capabilities:      m.Capabilities,
			InputPrice:        m.InputPrice,
			OutputPrice:       m.OutputPrice,
			SupportsStreaming: m.SupportsStreaming,
			SupportsThinking:  m.SupportsThinking,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":    views,
		"taskTypes": catalog.TaskTypes(),
	})
}

// Quota returns the caller's admission snapshot.
func (s *Server) Quota(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Ledger.GetUserStatus(GetUserID(r.Context())))
}

// Usage returns the caller's journalled usage totals.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	if database.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "usage journal not available")
		return
	}
	summary, err := database.SummarizeUsage(GetUserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load usage")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
