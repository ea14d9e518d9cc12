package catalog

// Plan is a subscription level. -1 for MonthlyCredits or MaxCallsPerDay
// means unlimited. AllowedModels of ["*"] means every model.
type Plan struct {
	Name           string
	MonthlyCredits float64
	MaxCallsPerDay int
	AllowedModels  []string
}

func (p Plan) Allows(modelID string) bool {
	for _, id := range p.AllowedModels {
		if id == "*" || id == modelID {
			return true
		}
	}
	return false
}

var plans = map[string]Plan{
	"free": {
		Name:           "free",
		MonthlyCredits: 5,
		MaxCallsPerDay: 50,
		AllowedModels:  []string{"deepseek-chat", "glm-4-flash", "qwen-turbo", "gpt-4o-mini"},
	},
	"pro": {
		Name:           "pro",
		MonthlyCredits: 100,
		MaxCallsPerDay: 1000,
		AllowedModels: []string{
			"deepseek-chat", "deepseek-reasoner", "glm-4-flash", "glm-4-plus",
			"qwen-turbo", "qwen-max", "gpt-4o-mini", "gpt-4o",
		},
	},
	"enterprise": {
		Name:           "enterprise",
		MonthlyCredits: -1,
		MaxCallsPerDay: -1,
		AllowedModels:  []string{"*"},
	},
}

// GetPlan returns the plan by name, falling back to free for unknown names.
func GetPlan(name string) Plan {
	if p, ok := plans[name]; ok {
		return p
	}
	return plans["free"]
}

// IsPlan reports whether name is a known plan name.
func IsPlan(name string) bool {
	_, ok := plans[name]
	return ok
}
