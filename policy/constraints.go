package policy

import (
	"fmt"

	"github.com/viant/taskgate/model/task"
)

// Violation describes an unmet constraint.
type Violation struct {
	Constraint Constraint `json:"constraint"`
	Message    string     `json:"message"`
}

// ConstraintResult is returned by ValidateConstraints.
type ConstraintResult struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// Messages returns the violation messages.
func (r ConstraintResult) Messages() []string {
	ret := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		ret = append(ret, v.Message)
	}
	return ret
}

// ValidateConstraints checks every constraint whose class applies to t.
// Violations do not affect Evaluate.
func (e *Engine) ValidateConstraints(t *task.Task) ConstraintResult {
	classes := e.Classes(t)
	ret := ConstraintResult{Valid: true}
	for _, constraint := range e.config.Constraints {
		if !classes[normalize(constraint.When)] || t.HasFlag(constraint.Flag) {
			continue
		}
		message := constraint.Message
		if message == "" {
			message = fmt.Sprintf("%s tasks require flag '%s'", constraint.When, constraint.Flag)
		}
		ret.Violations = append(ret.Violations, Violation{Constraint: constraint, Message: message})
	}
	ret.Valid = len(ret.Violations) == 0
	return ret
}

// ConstraintViolation is the error reported when a task is dispatched with unmet constraints.
type ConstraintViolation struct {
	TaskID     string
	Violations []Violation
}

func (e *ConstraintViolation) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("constraint violation: %s", e.Violations[0].Message)
	}
	return fmt.Sprintf("constraint violation: %d constraints unmet, first: %s", len(e.Violations), e.Violations[0].Message)
}
