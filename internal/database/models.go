package database

import "time"

// UsageRecord journals one completed upstream call. The quota ledger keeps
// the authoritative in-memory counters; these rows are the durable trail
// behind them.
type UsageRecord struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	UserID       string    `gorm:"not null;index"`
	SessionID    string    `gorm:"not null;default:''"`
	Model        string    `gorm:"not null"`
	InputTokens  int64     `gorm:"not null;default:0"`
	OutputTokens int64     `gorm:"not null;default:0"`
	CostMicro    int64     `gorm:"not null;default:0"` // microdollars
	DurationMs   int64     `gorm:"not null;default:0"`
	Streamed     bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index"`
}
