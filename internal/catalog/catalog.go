package catalog

import "strings"

type Tier string

const (
	Tier1 Tier = "tier1"
	Tier2 Tier = "tier2"
	Tier3 Tier = "tier3"
)

type Priority string

const (
	PriorityIntelligence Priority = "intelligence"
	PriorityCost         Priority = "cost"
	PrioritySpeed        Priority = "speed"
)

// ModelDescriptor describes one upstream model. Prices are in dollars per
// one million tokens. The catalog is loaded once and never mutated.
type ModelDescriptor struct {
	ID                string
	Tier              Tier
	Capabilities      []string
	InputPrice        float64
	OutputPrice       float64
	SupportsStreaming bool
	SupportsThinking  bool
}

func (m ModelDescriptor) HasCapability(cap string) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

func (m ModelDescriptor) PriceSum() float64 {
	return m.InputPrice + m.OutputPrice
}

// TaskTypeConfig maps a task type to its recommended model and routing
// priority.
type TaskTypeConfig struct {
	TaskType         string
	RecommendedModel string
	Alternatives     []string
	Priority         Priority
}

var models = []ModelDescriptor{
	{
		ID:                "deepseek-chat",
		Tier:              Tier2,
		Capabilities:      []string{"cheap", "fast", "chinese"},
		InputPrice:        0.27,
		OutputPrice:       1.10,
		SupportsStreaming: true,
	},
	{
		ID:                "deepseek-reasoner",
		Tier:              Tier1,
		Capabilities:      []string{"chinese", "reasoning"},
		InputPrice:        0.55,
		OutputPrice:       2.19,
		SupportsStreaming: true,
		SupportsThinking:  true,
	},
	{
		ID:                "glm-4-flash",
		Tier:              Tier3,
		Capabilities:      []string{"cheap", "fast", "chinese"},
		InputPrice:        0.06,
		OutputPrice:       0.06,
		SupportsStreaming: true,
	},
	{
		ID:                "glm-4-plus",
		Tier:              Tier1,
		Capabilities:      []string{"chinese", "agent"},
		InputPrice:        7.00,
		OutputPrice:       7.00,
		SupportsStreaming: true,
	},
	{
		ID:                "qwen-turbo",
		Tier:              Tier3,
		Capabilities:      []string{"cheap", "fast", "chinese"},
		InputPrice:        0.05,
		OutputPrice:       0.20,
		SupportsStreaming: true,
	},
	{
		ID:                "qwen-max",
		Tier:              Tier1,
		Capabilities:      []string{"chinese", "reasoning", "agent"},
		InputPrice:        2.40,
		OutputPrice:       9.60,
		SupportsStreaming: true,
		SupportsThinking:  true,
	},
	{
		ID:                "gpt-4o",
		Tier:              Tier1,
		Capabilities:      []string{"agent"},
		InputPrice:        2.50,
		OutputPrice:       10.00,
		SupportsStreaming: true,
	},
	{
		ID:                "gpt-4o-mini",
		Tier:              Tier2,
		Capabilities:      []string{"cheap", "fast", "agent"},
		InputPrice:        0.15,
		OutputPrice:       0.60,
		SupportsStreaming: true,
	},
	{
		ID:                "o1-mini",
		Tier:              Tier1,
		Capabilities:      []string{"reasoning"},
		InputPrice:        1.10,
		OutputPrice:       4.40,
		SupportsStreaming: true,
		SupportsThinking:  true,
	},
}

var modelIndex = func() map[string]int {
	idx := make(map[string]int, len(models))
	for i, m := range models {
		idx[m.ID] = i
	}
	return idx
}()

var taskConfigs = map[string]TaskTypeConfig{
	"scan": {
		TaskType:         "scan",
		RecommendedModel: "glm-4-flash",
		Alternatives:     []string{"qwen-turbo", "gpt-4o-mini"},
		Priority:         PrioritySpeed,
	},
	"analysis": {
		TaskType:         "analysis",
		RecommendedModel: "deepseek-reasoner",
		Alternatives:     []string{"qwen-max", "gpt-4o"},
		Priority:         PriorityIntelligence,
	},
	"execution": {
		TaskType:         "execution",
		RecommendedModel: "gpt-4o-mini",
		Alternatives:     []string{"deepseek-chat"},
		Priority:         PrioritySpeed,
	},
	"chat": {
		TaskType:         "chat",
		RecommendedModel: "deepseek-chat",
		Alternatives:     []string{"gpt-4o-mini", "glm-4-flash"},
		Priority:         PriorityCost,
	},
	"reasoning": {
		TaskType:         "reasoning",
		RecommendedModel: "deepseek-reasoner",
		Alternatives:     []string{"o1-mini", "qwen-max"},
		Priority:         PriorityIntelligence,
	},
	"agent": {
		TaskType:         "agent",
		RecommendedModel: "gpt-4o",
		Alternatives:     []string{"qwen-max"},
		Priority:         PriorityIntelligence,
	},
}

// GetModel looks up a model descriptor by id.
func GetModel(id string) (ModelDescriptor, bool) {
	i, ok := modelIndex[strings.TrimSpace(id)]
	if !ok {
		return ModelDescriptor{}, false
	}
	return models[i], true
}

// GetTaskConfig looks up the routing config for a task type.
func GetTaskConfig(taskType string) (TaskTypeConfig, bool) {
	cfg, ok := taskConfigs[taskType]
	return cfg, ok
}

// AllModels returns the catalog in declaration order. Callers must not
// mutate the returned slice.
func AllModels() []ModelDescriptor {
	return models
}

// TaskTypes returns the known task type names.
func TaskTypes() []string {
	return []string{"scan", "analysis", "execution", "chat", "reasoning", "agent"}
}

// IsTaskType reports whether t is one of the known task types.
func IsTaskType(t string) bool {
	_, ok := taskConfigs[t]
	return ok
}
