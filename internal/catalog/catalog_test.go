package catalog

import "testing"

func TestGetModel(t *testing.T) {
	m, ok := GetModel("deepseek-chat")
	if !ok {
		t.Fatal("Expected deepseek-chat to exist")
	}
	if m.Tier != Tier2 {
		t.Errorf("Expected tier2, got %s", m.Tier)
	}
	if !m.HasCapability("cheap") {
		t.Error("Expected deepseek-chat to have cheap capability")
	}
	if m.HasCapability("reasoning") {
		t.Error("Expected deepseek-chat to lack reasoning capability")
	}

	if _, ok := GetModel("no-such-model"); ok {
		t.Error("Expected unknown model lookup to fail")
	}
}

func TestGetTaskConfig(t *testing.T) {
	for _, taskType := range TaskTypes() {
		cfg, ok := GetTaskConfig(taskType)
		if !ok {
			t.Fatalf("Missing task config for %s", taskType)
		}
		if _, ok := GetModel(cfg.RecommendedModel); !ok {
			t.Errorf("Task %s recommends unknown model %s", taskType, cfg.RecommendedModel)
		}
		for _, alt := range cfg.Alternatives {
			if _, ok := GetModel(alt); !ok {
				t.Errorf("Task %s lists unknown alternative %s", taskType, alt)
			}
		}
	}

	if _, ok := GetTaskConfig("juggling"); ok {
		t.Error("Expected unknown task type lookup to fail")
	}
}

func TestPlanAllows(t *testing.T) {
	free := GetPlan("free")
	if !free.Allows("deepseek-chat") {
		t.Error("Expected free plan to allow deepseek-chat")
	}
	if free.Allows("qwen-max") {
		t.Error("Expected free plan to deny qwen-max")
	}

	ent := GetPlan("enterprise")
	if !ent.Allows("qwen-max") || !ent.Allows("anything-at-all") {
		t.Error("Expected enterprise wildcard to allow every model")
	}
	if ent.MonthlyCredits != -1 || ent.MaxCallsPerDay != -1 {
		t.Error("Expected enterprise limits to be unlimited")
	}
}

func TestGetPlanFallsBackToFree(t *testing.T) {
	p := GetPlan("platinum")
	if p.Name != "free" {
		t.Errorf("Expected unknown plan to fall back to free, got %s", p.Name)
	}
}

func TestPlanAllowedModelsExist(t *testing.T) {
	for _, name := range []string{"free", "pro"} {
		for _, id := range GetPlan(name).AllowedModels {
			if _, ok := GetModel(id); !ok {
				t.Errorf("Plan %s allows unknown model %s", name, id)
			}
		}
	}
}
