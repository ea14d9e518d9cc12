package router

import (
	"sort"

	"github.com/quantdesk/ai-gateway/internal/catalog"
)

// FallbackModel is returned when a selection filter matches nothing.
const FallbackModel = "deepseek-chat"

// RoutingRequest carries the inputs for one model selection.
type RoutingRequest struct {
	TaskType      string
	UserTier      string
	PreferChinese bool
	PreferSpeed   bool
	PreferCost    bool
}

// Decision records why a model was chosen, returned alongside responses.
type Decision struct {
	Model    string   `json:"model"`
	Reason   string   `json:"reason"`
	Warnings []string `json:"warnings,omitempty"`
}

// SelectModel picks one model id for the request. Rules are evaluated
// top to bottom and the first match wins.
func SelectModel(req RoutingRequest) Decision {
	if req.UserTier == "free" {
		return Decision{Model: selectCheapModel(req.PreferChinese), Reason: "free tier"}
	}
	if req.PreferCost {
		return Decision{Model: selectCheapModel(req.PreferChinese), Reason: "cost preference"}
	}
	if req.PreferSpeed {
		return Decision{Model: selectFastModel(req.PreferChinese), Reason: "speed preference"}
	}
	if req.PreferChinese {
		return Decision{Model: selectChineseModel(req.TaskType), Reason: "chinese preference"}
	}
	if cfg, ok := catalog.GetTaskConfig(req.TaskType); ok {
		return Decision{Model: cfg.RecommendedModel, Reason: "task recommendation"}
	}
	return Decision{Model: FallbackModel, Reason: "fallback"}
}

func selectCheapModel(preferChinese bool) string {
	var eligible []catalog.ModelDescriptor
	for _, m := range catalog.AllModels() {
		if m.HasCapability("cheap") || m.Tier == catalog.Tier2 || m.Tier == catalog.Tier3 {
			eligible = append(eligible, m)
		}
	}
	if len(eligible) == 0 {
		return FallbackModel
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].PriceSum() < eligible[j].PriceSum()
	})
	if preferChinese {
		for _, m := range eligible {
			if m.HasCapability("chinese") {
				return m.ID
			}
		}
	}
	return eligible[0].ID
}

func selectFastModel(preferChinese bool) string {
	var eligible []catalog.ModelDescriptor
	for _, m := range catalog.AllModels() {
		if m.HasCapability("fast") {
			eligible = append(eligible, m)
		}
	}
	if len(eligible) == 0 {
		return FallbackModel
	}
	if preferChinese {
		for _, m := range eligible {
			if m.HasCapability("chinese") {
				return m.ID
			}
		}
	}
	return eligible[0].ID
}

func selectChineseModel(taskType string) string {
	var eligible []catalog.ModelDescriptor
	for _, m := range catalog.AllModels() {
		if m.HasCapability("chinese") {
			eligible = append(eligible, m)
		}
	}
	if len(eligible) == 0 {
		return FallbackModel
	}
	cfg, _ := catalog.GetTaskConfig(taskType)
	switch cfg.Priority {
	case catalog.PriorityIntelligence:
		for _, m := range eligible {
			if m.HasCapability("reasoning") {
				return m.ID
			}
		}
	case catalog.PriorityCost:
		sort.SliceStable(eligible, func(i, j int) bool {
			return eligible[i].PriceSum() < eligible[j].PriceSum()
		})
	}
	return eligible[0].ID
}

// Validation is the result of checking a caller-supplied model against a
// task type. Warnings are informational, not fatal.
type Validation struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValidateModelForTask checks that the model exists and flags mismatches
// with the task's recommendations.
func ValidateModelForTask(modelID, taskType string) Validation {
	m, ok := catalog.GetModel(modelID)
	if !ok {
		return Validation{Valid: false}
	}

	var warnings []string
	if cfg, ok := catalog.GetTaskConfig(taskType); ok {
		recommended := cfg.RecommendedModel == modelID
		for _, alt := range cfg.Alternatives {
			if alt == modelID {
				recommended = true
			}
		}
		if !recommended {
			warnings = append(warnings, "model is not recommended for task type "+taskType)
		}
	}
	if taskType == "reasoning" && !m.SupportsThinking {
		warnings = append(warnings, "model does not support thinking output")
	}
	if taskType == "agent" && !m.HasCapability("agent") {
		warnings = append(warnings, "model is not tuned for agent tasks")
	}
	return Validation{Valid: true, Warnings: warnings}
}

// GetAlternativeModels returns the configured alternatives for a task type.
func GetAlternativeModels(taskType string) []string {
	cfg, ok := catalog.GetTaskConfig(taskType)
	if !ok {
		return nil
	}
	return cfg.Alternatives
}

// GetStreamingSupport reports whether the model supports streaming and
// thinking output.
func GetStreamingSupport(modelID string) (streaming, thinking bool) {
	m, ok := catalog.GetModel(modelID)
	if !ok {
		return false, false
	}
	return m.SupportsStreaming, m.SupportsThinking
}
