package policy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/viant/taskgate/model/task"
)

func TestEngine_Evaluate(t *testing.T) {
	engine, err := New(DefaultConfig())
	require.NoError(t, err)

	testCases := []struct {
		name             string
		task             *task.Task
		requiresApproval bool
		approvalType     string
		reasonContains   string
	}{
		{
			name:             "financial category always gated",
			task:             &task.Task{Module: "docs", Action: "list", Category: "financial"},
			requiresApproval: true,
			approvalType:     ApprovalTypeCategory,
			reasonContains:   "category 'financial'",
		},
		{
			name:             "category wins over keyword",
			task:             &task.Task{Module: "pay", Action: "transfer", Category: "Hiring"},
			requiresApproval: true,
			approvalType:     ApprovalTypeCategory,
			reasonContains:   "hiring",
		},
		{
			name:           "document management auto approved",
			task:           &task.Task{Module: "docs", Action: "list", Category: "document_management"},
			approvalType:   ApprovalTypeAuto,
			reasonContains: "auto-approved",
		},
		{
			name:             "keyword in action",
			task:             &task.Task{Module: "pay", Action: "transfer", Data: map[string]interface{}{"amount": 500}},
			requiresApproval: true,
			approvalType:     ApprovalTypeFinancial,
			reasonContains:   "financial",
		},
		{
			name:             "keyword beats auto approve category",
			task:             &task.Task{Module: "report", Action: "build", Category: "reporting", Data: map[string]interface{}{"note": "Refund summary"}},
			requiresApproval: true,
			approvalType:     ApprovalTypeFinancial,
			reasonContains:   "refund",
		},
		{
			name:             "legal keyword in description",
			task:             &task.Task{Module: "mail", Action: "send", Description: "Reply to the ATTORNEY"},
			requiresApproval: true,
			approvalType:     ApprovalTypeLegal,
			reasonContains:   "legal safeguard",
		},
		{
			name:             "default requires approval",
			task:             &task.Task{Module: "misc", Action: "run"},
			requiresApproval: true,
			approvalType:     ApprovalTypeDefault,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := engine.Evaluate(tc.task)
			assert.Equal(t, tc.requiresApproval, actual.RequiresApproval)
			assert.Equal(t, tc.approvalType, actual.ApprovalType)
			assert.Contains(t, actual.Reason, tc.reasonContains)
		})
	}
}

func TestEngine_DefaultAutoApprove(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultAutoApprove = true
	engine, err := New(cfg)
	require.NoError(t, err)
	actual := engine.Evaluate(&task.Task{Module: "misc", Action: "run"})
	assert.False(t, actual.RequiresApproval)
	assert.Equal(t, ApprovalTypeDefault, actual.ApprovalType)
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		subject  string
		keywords []string
		expect   string
		found    bool
	}{
		{name: "first keyword wins", subject: "wire the payment", keywords: []string{"payment", "wire"}, expect: "payment", found: true},
		{name: "no match", subject: "list documents", keywords: []string{"payment"}},
		{name: "empty keyword ignored", subject: "anything", keywords: []string{""}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual, ok := Classify(tc.subject, tc.keywords)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.expect, actual)
		})
	}
}

func TestSubject(t *testing.T) {
	subject := Subject(&task.Task{Module: "Pay", Action: "Send", Data: map[string]interface{}{"Memo": "Bank"}})
	assert.Contains(t, subject, "pay send")
	assert.Contains(t, subject, `"memo":"bank"`)
	assert.Equal(t, "", Subject(nil))
}

func TestNew_ConfigError(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{name: "overlapping categories", mutate: func(c *Config) { c.AutoApprove = append(c.AutoApprove, "Financial") }, field: "autoApprove"},
		{name: "blank keyword", mutate: func(c *Config) { c.LegalKeywords = append(c.LegalKeywords, " ") }, field: "legalKeywords[5]"},
		{name: "constraint without flag", mutate: func(c *Config) { c.Constraints = []Constraint{{When: "financial"}} }, field: "constraints[0].flag"},
		{name: "constraint without class", mutate: func(c *Config) { c.Constraints = []Constraint{{Flag: "x"}} }, field: "constraints[0].when"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			_, err := New(cfg)
			var cErr *ConfigError
			require.True(t, errors.As(err, &cErr), "expected ConfigError, got %v", err)
			assert.Equal(t, tc.field, cErr.Field)
		})
	}
}

func TestEngine_ValidateConstraints(t *testing.T) {
	engine, err := New(DefaultConfig())
	require.NoError(t, err)

	testCases := []struct {
		name       string
		task       *task.Task
		violations int
	}{
		{name: "keyword financial without flag", task: &task.Task{Module: "pay", Action: "transfer"}, violations: 1},
		{name: "financial with flag", task: &task.Task{Module: "pay", Action: "transfer", Flags: map[string]bool{"dual_authorization": true}}},
		{name: "financial and legal", task: &task.Task{Module: "pay", Action: "settlement payout"}, violations: 2},
		{name: "unrelated", task: &task.Task{Module: "docs", Action: "list", Category: "document_management"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := engine.ValidateConstraints(tc.task)
			assert.Len(t, actual.Violations, tc.violations)
			assert.Equal(t, tc.violations == 0, actual.Valid)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("autoApprove: [reporting]\ndefaultAutoApprove: true\n"), 0o600))

	testCases := []struct {
		name     string
		location string
	}{
		{name: "path", location: path},
		{name: "file url", location: "file://" + filepath.ToSlash(path)},
		{name: "memory url", location: "mem://localhost/policy/policy.yaml"},
	}
	ctx := context.Background()
	require.NoError(t, afs.New().Upload(ctx, "mem://localhost/policy/policy.yaml", 0o644, strings.NewReader("autoApprove: [reporting]\ndefaultAutoApprove: true\n")))
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig(ctx, tc.location)
			require.NoError(t, err)
			assert.Equal(t, []string{"reporting"}, cfg.AutoApprove)
			assert.True(t, cfg.DefaultAutoApprove)
			assert.Equal(t, DefaultConfig().FinancialKeywords, cfg.FinancialKeywords)
		})
	}

	_, err := LoadConfig(ctx, filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
