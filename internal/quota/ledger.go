package quota

import (
	"log"
	"sync"
	"time"

	"github.com/quantdesk/ai-gateway/internal/catalog"
	"github.com/quantdesk/ai-gateway/internal/database"
)

// QuotaRecord tracks one user's consumption. Records are created lazily on
// first access and live for the process lifetime; the database journal is
// the durable trail behind them.
type QuotaRecord struct {
	UserID        string
	Plan          string
	MonthlyUsed   float64
	DailyCalls    int
	LastResetDate string // UTC date, "2006-01-02"
	TotalCost     float64
}

// UserStatus is the admission snapshot returned to callers. Remaining
// values are -1 when the plan is unlimited, otherwise clamped to >= 0.
type UserStatus struct {
	UserID              string   `json:"userId"`
	Plan                string   `json:"plan"`
	CanUseAI            bool     `json:"canUseAI"`
	MonthlyUsed         float64  `json:"monthlyUsed"`
	RemainingCredits    float64  `json:"remainingCredits"`
	DailyCalls          int      `json:"dailyCalls"`
	RemainingCallsToday int      `json:"remainingCallsToday"`
	TotalCost           float64  `json:"totalCost"`
	AllowedModels       []string `json:"allowedModels"`
}

// Usage is the cost of one completed call, as recorded by the ledger.
type Usage struct {
	Model        string
	SessionID    string
	InputTokens  int64
	OutputTokens int64
	TotalCost    float64
	DurationMs   int64
	Streamed     bool
}

// Ledger is the in-memory admission store, shared across requests.
type Ledger struct {
	mu          sync.Mutex
	records     map[string]*QuotaRecord
	defaultPlan string
	now         func() time.Time
}

// NewLedger creates a ledger that assigns defaultPlan to users it has
// never seen. Unknown plan names fall back to free.
func NewLedger(defaultPlan string) *Ledger {
	if !catalog.IsPlan(defaultPlan) {
		defaultPlan = "free"
	}
	return &Ledger{
		records:     make(map[string]*QuotaRecord),
		defaultPlan: defaultPlan,
		now:         time.Now,
	}
}

func (l *Ledger) getRecord(userID string) *QuotaRecord {
	rec, ok := l.records[userID]
	if !ok {
		rec = &QuotaRecord{
			UserID:        userID,
			Plan:          l.defaultPlan,
			LastResetDate: l.today(),
		}
		l.records[userID] = rec
	}
	return rec
}

func (l *Ledger) today() string {
	return l.now().UTC().Format("2006-01-02")
}

// GetUserStatus loads (or lazily creates) the user's record, applies the
// once-per-day call counter reset, and computes admission.
func (l *Ledger) GetUserStatus(userID string) UserStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.getRecord(userID)
	if today := l.today(); rec.LastResetDate != today {
		rec.DailyCalls = 0
		rec.LastResetDate = today
	}

	plan := catalog.GetPlan(rec.Plan)
	status := UserStatus{
		UserID:        userID,
		Plan:          rec.Plan,
		MonthlyUsed:   rec.MonthlyUsed,
		DailyCalls:    rec.DailyCalls,
		TotalCost:     rec.TotalCost,
		AllowedModels: plan.AllowedModels,
	}

	status.CanUseAI = canUse(rec, plan)

	if plan.MonthlyCredits < 0 {
		status.RemainingCredits = -1
	} else if remaining := plan.MonthlyCredits - rec.MonthlyUsed; remaining > 0 {
		status.RemainingCredits = remaining
	}
	if plan.MaxCallsPerDay < 0 {
		status.RemainingCallsToday = -1
	} else if remaining := plan.MaxCallsPerDay - rec.DailyCalls; remaining > 0 {
		status.RemainingCallsToday = remaining
	}

	return status
}

func canUse(rec *QuotaRecord, plan catalog.Plan) bool {
	if plan.Name == "enterprise" {
		return true
	}
	if plan.MonthlyCredits >= 0 && rec.MonthlyUsed >= plan.MonthlyCredits {
		return false
	}
	if plan.MaxCallsPerDay >= 0 && rec.DailyCalls >= plan.MaxCallsPerDay {
		return false
	}
	return true
}

// CheckModelAccess decides whether the user may call the given model right
// now. The reason is empty when access is allowed.
func (l *Ledger) CheckModelAccess(userID, modelID string) (bool, string) {
	status := l.GetUserStatus(userID)
	if !status.CanUseAI {
		return false, "usage limit reached"
	}
	plan := catalog.GetPlan(status.Plan)
	if plan.Name == "enterprise" {
		return true, ""
	}
	if plan.Allows(modelID) {
		return true, ""
	}
	return false, "plan does not support this model"
}

// RecordUsage charges one completed call against the user. Callers invoke
// it exactly once per call, after the call finishes. The journal write is
// best-effort; a journal failure never fails the request.
func (l *Ledger) RecordUsage(userID string, u Usage) {
	l.mu.Lock()
	rec := l.getRecord(userID)
	rec.MonthlyUsed += u.TotalCost
	rec.DailyCalls++
	rec.TotalCost += u.TotalCost
	l.mu.Unlock()

	if database.DB == nil {
		return
	}
	row := database.UsageRecord{
		UserID:       userID,
		SessionID:    u.SessionID,
		Model:        u.Model,
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		CostMicro:    int64(u.TotalCost * 1_000_000),
		DurationMs:   u.DurationMs,
		Streamed:     u.Streamed,
	}
	if err := database.DB.Create(&row).Error; err != nil {
		log.Printf("Failed to journal usage for %s: %v", userID, err)
	}
}

// SetPlan assigns a plan to a user, creating the record if needed.
func (l *Ledger) SetPlan(userID, plan string) bool {
	if !catalog.IsPlan(plan) {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.getRecord(userID).Plan = plan
	return true
}

// EstimateCost predicts the dollar cost of a call assuming a 60/40
// input/output token split. Unknown models estimate to zero.
func EstimateCost(modelID string, estimatedTokens int64) float64 {
	m, ok := catalog.GetModel(modelID)
	if !ok {
		return 0
	}
	tokensIn := float64(estimatedTokens) * 0.6
	tokensOut := float64(estimatedTokens) * 0.4
	return (tokensIn*m.InputPrice + tokensOut*m.OutputPrice) / 1_000_000
}
