package quota

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGetUserStatusLazyCreate(t *testing.T) {
	l := NewLedger("free")
	status := l.GetUserStatus("u1")
	if status.Plan != "free" {
		t.Errorf("Expected free plan for new user, got %s", status.Plan)
	}
	if !status.CanUseAI {
		t.Error("Expected fresh free user to be admitted")
	}
	if status.DailyCalls != 0 || status.MonthlyUsed != 0 {
		t.Error("Expected zero usage for new user")
	}
	if status.RemainingCredits != 5 {
		t.Errorf("Expected 5 remaining credits, got %v", status.RemainingCredits)
	}
	if status.RemainingCallsToday != 50 {
		t.Errorf("Expected 50 remaining calls, got %d", status.RemainingCallsToday)
	}
}

func TestNewLedgerUnknownDefaultPlan(t *testing.T) {
	l := NewLedger("platinum")
	if status := l.GetUserStatus("u1"); status.Plan != "free" {
		t.Errorf("Expected unknown default plan to fall back to free, got %s", status.Plan)
	}
}

func TestDefaultPlanConfigurable(t *testing.T) {
	l := NewLedger("enterprise")
	status := l.GetUserStatus("brand-new")
	if status.Plan != "enterprise" {
		t.Errorf("Expected enterprise default, got %s", status.Plan)
	}
	if status.RemainingCredits != -1 || status.RemainingCallsToday != -1 {
		t.Error("Expected unlimited remaining values for enterprise")
	}
}

func TestMonthlyCreditLimit(t *testing.T) {
	l := NewLedger("free")
	l.RecordUsage("u1", Usage{TotalCost: 4.99})
	if status := l.GetUserStatus("u1"); !status.CanUseAI {
		t.Error("Expected admission under the monthly limit")
	}
	l.RecordUsage("u1", Usage{TotalCost: 0.02})
	status := l.GetUserStatus("u1")
	if status.CanUseAI {
		t.Error("Expected denial once monthly credits are spent")
	}
	if status.RemainingCredits != 0 {
		t.Errorf("Expected remaining credits clamped to 0, got %v", status.RemainingCredits)
	}
}

func TestDailyCallLimit(t *testing.T) {
	l := NewLedger("free")
	for i := 0; i < 50; i++ {
		l.RecordUsage("u1", Usage{TotalCost: 0.001})
	}
	status := l.GetUserStatus("u1")
	if status.CanUseAI {
		t.Error("Expected denial at the daily call cap")
	}
	if status.RemainingCallsToday != 0 {
		t.Errorf("Expected remaining calls clamped to 0, got %d", status.RemainingCallsToday)
	}
}

func TestDailyReset(t *testing.T) {
	l := NewLedger("free")
	day1 := time.Date(2026, 3, 1, 23, 50, 0, 0, time.UTC)
	l.now = fixedClock(day1)

	for i := 0; i < 50; i++ {
		l.RecordUsage("u1", Usage{TotalCost: 0.001})
	}
	if status := l.GetUserStatus("u1"); status.CanUseAI {
		t.Fatal("Expected daily cap to deny on day one")
	}

	l.now = fixedClock(day1.Add(20 * time.Minute)) // past midnight UTC
	status := l.GetUserStatus("u1")
	if status.DailyCalls != 0 {
		t.Errorf("Expected daily calls reset to 0, got %d", status.DailyCalls)
	}
	if !status.CanUseAI {
		t.Error("Expected admission after the daily reset")
	}
	if status.MonthlyUsed == 0 {
		t.Error("Expected monthly usage to survive the daily reset")
	}

	// The reset fires exactly once per date change.
	l.GetUserStatus("u1")
	l.RecordUsage("u1", Usage{TotalCost: 0.001})
	if status := l.GetUserStatus("u1"); status.DailyCalls != 1 {
		t.Errorf("Expected 1 daily call after reset, got %d", status.DailyCalls)
	}
}

func TestEnterpriseAlwaysAdmitted(t *testing.T) {
	l := NewLedger("enterprise")
	l.RecordUsage("u1", Usage{TotalCost: 1e9})
	status := l.GetUserStatus("u1")
	if !status.CanUseAI {
		t.Error("Expected enterprise admission regardless of spend")
	}
}

func TestCheckModelAccess(t *testing.T) {
	l := NewLedger("free")

	if ok, reason := l.CheckModelAccess("u1", "deepseek-chat"); !ok {
		t.Errorf("Expected access to an allowed model, got denial: %s", reason)
	}
	if ok, reason := l.CheckModelAccess("u1", "qwen-max"); ok || reason != "plan does not support this model" {
		t.Errorf("Expected plan denial for qwen-max, got ok=%v reason=%q", ok, reason)
	}

	l.RecordUsage("u1", Usage{TotalCost: 10})
	if ok, reason := l.CheckModelAccess("u1", "deepseek-chat"); ok || reason != "usage limit reached" {
		t.Errorf("Expected limit denial, got ok=%v reason=%q", ok, reason)
	}

	l.SetPlan("u2", "enterprise")
	if ok, _ := l.CheckModelAccess("u2", "some-unlisted-model"); !ok {
		t.Error("Expected enterprise access to any model")
	}
}

func TestRecordUsageAccumulates(t *testing.T) {
	l := NewLedger("pro")
	l.RecordUsage("u1", Usage{TotalCost: 0.5})
	l.RecordUsage("u1", Usage{TotalCost: 0.25})
	status := l.GetUserStatus("u1")
	if status.MonthlyUsed != 0.75 {
		t.Errorf("Expected monthly used 0.75, got %v", status.MonthlyUsed)
	}
	if status.TotalCost != 0.75 {
		t.Errorf("Expected total cost 0.75, got %v", status.TotalCost)
	}
	if status.DailyCalls != 2 {
		t.Errorf("Expected 2 daily calls, got %d", status.DailyCalls)
	}
}

func TestEstimateCost(t *testing.T) {
	// deepseek-chat: 0.27 in, 1.10 out; 60/40 split over 1M tokens.
	got := EstimateCost("deepseek-chat", 1_000_000)
	want := (600_000*0.27 + 400_000*1.10) / 1_000_000
	if got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if EstimateCost("no-such-model", 1000) != 0 {
		t.Error("Expected zero estimate for unknown model")
	}
}
