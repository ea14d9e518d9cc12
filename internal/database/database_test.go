package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quantdesk/ai-gateway/internal/config"
)

func setupTestDB(t *testing.T) func() {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "ai-gateway-db-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	config.Cfg.DatabasePath = filepath.Join(tmpDir, "test.db")

	if err := Init(); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to init database: %v", err)
	}

	return func() {
		Close()
		DB = nil
		os.RemoveAll(tmpDir)
	}
}

func TestInitAndMigrate(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	if !DB.Migrator().HasTable(&UsageRecord{}) {
		t.Error("Expected usage_records table after migration")
	}
}

func TestSummarizeUsage(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	rows := []UsageRecord{
		{UserID: "u1", Model: "deepseek-chat", InputTokens: 100, OutputTokens: 50, CostMicro: 82},
		{UserID: "u1", Model: "deepseek-reasoner", InputTokens: 200, OutputTokens: 80, CostMicro: 285, Streamed: true},
		{UserID: "u2", Model: "gpt-4o", InputTokens: 10, OutputTokens: 5, CostMicro: 75},
	}
	for _, row := range rows {
		if err := DB.Create(&row).Error; err != nil {
			t.Fatalf("Failed to create record: %v", err)
		}
	}

	summary, err := SummarizeUsage("u1")
	if err != nil {
		t.Fatalf("SummarizeUsage failed: %v", err)
	}
	if summary.Calls != 2 {
		t.Errorf("Expected 2 calls, got %d", summary.Calls)
	}
	if summary.InputTokens != 300 || summary.OutputTokens != 130 {
		t.Errorf("Expected 300/130 tokens, got %d/%d", summary.InputTokens, summary.OutputTokens)
	}
	if summary.CostMicro != 367 {
		t.Errorf("Expected 367 microdollars, got %d", summary.CostMicro)
	}

	empty, err := SummarizeUsage("nobody")
	if err != nil {
		t.Fatalf("SummarizeUsage failed for unseen user: %v", err)
	}
	if empty.Calls != 0 || empty.CostMicro != 0 {
		t.Errorf("Expected empty summary, got %+v", empty)
	}
}
