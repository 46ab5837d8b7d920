package policy

import (
	"fmt"
	"strings"

	"github.com/viant/taskgate/model/task"
)

// Approval types reported by Evaluate.
const (
	ApprovalTypeCategory  = "category"
	ApprovalTypeFinancial = "financial"
	ApprovalTypeLegal     = "legal"
	ApprovalTypeAuto      = "auto"
	ApprovalTypeDefault   = "default"
)

// Evaluation is the outcome of a policy decision. It is never persisted.
type Evaluation struct {
	RequiresApproval bool   `json:"requiresApproval"`
	Reason           string `json:"reason"`
	ApprovalType     string `json:"approvalType"`
}

// Engine decides whether a task needs human approval. It is immutable once
// built and safe for concurrent use.
type Engine struct {
	config            Config
	approvalRequired  map[string]bool
	autoApprove       map[string]bool
	financialKeywords []string
	legalKeywords     []string
}

// New validates cfg and builds an Engine.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ret := &Engine{
		config:            cfg.Clone(),
		approvalRequired:  toSet(cfg.ApprovalRequired),
		autoApprove:       toSet(cfg.AutoApprove),
		financialKeywords: lowerAll(cfg.FinancialKeywords),
		legalKeywords:     lowerAll(cfg.LegalKeywords),
	}
	return ret, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return e.config.Clone()
}

// Evaluate applies the rules in order; the first one that matches wins:
// approval-required category, financial keyword, legal keyword,
// auto-approve category and finally the configured default.
func (e *Engine) Evaluate(t *task.Task) Evaluation {
	category := normalize(t.Category)
	if category != "" && e.approvalRequired[category] {
		return Evaluation{
			RequiresApproval: true,
			Reason:           fmt.Sprintf("category '%s' requires approval", category),
			ApprovalType:     ApprovalTypeCategory,
		}
	}
	subject := Subject(t)
	if keyword, ok := Classify(subject, e.financialKeywords); ok {
		return Evaluation{
			RequiresApproval: true,
			Reason:           fmt.Sprintf("financial safeguard: matched keyword '%s'", keyword),
			ApprovalType:     ApprovalTypeFinancial,
		}
	}
	if keyword, ok := Classify(subject, e.legalKeywords); ok {
		return Evaluation{
			RequiresApproval: true,
			Reason:           fmt.Sprintf("legal safeguard: matched keyword '%s'", keyword),
			ApprovalType:     ApprovalTypeLegal,
		}
	}
	if category != "" && e.autoApprove[category] {
		return Evaluation{
			Reason:       fmt.Sprintf("category '%s' is auto-approved", category),
			ApprovalType: ApprovalTypeAuto,
		}
	}
	if e.config.DefaultAutoApprove {
		return Evaluation{Reason: "default policy: auto-approved", ApprovalType: ApprovalTypeDefault}
	}
	return Evaluation{
		RequiresApproval: true,
		Reason:           "default policy: approval required",
		ApprovalType:     ApprovalTypeDefault,
	}
}

// Classes returns every classification of t: its category plus the keyword
// classes (financial, legal) whose keywords appear in the subject.
func (e *Engine) Classes(t *task.Task) map[string]bool {
	ret := map[string]bool{}
	if category := normalize(t.Category); category != "" {
		ret[category] = true
	}
	subject := Subject(t)
	if _, ok := Classify(subject, e.financialKeywords); ok {
		ret[ApprovalTypeFinancial] = true
	}
	if _, ok := Classify(subject, e.legalKeywords); ok {
		ret[ApprovalTypeLegal] = true
	}
	return ret
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toSet(values []string) map[string]bool {
	ret := make(map[string]bool, len(values))
	for _, v := range values {
		ret[normalize(v)] = true
	}
	return ret
}

func lowerAll(values []string) []string {
	ret := make([]string, 0, len(values))
	for _, v := range values {
		ret = append(ret, normalize(v))
	}
	return ret
}
