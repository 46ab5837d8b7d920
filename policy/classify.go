package policy

import (
	"encoding/json"
	"strings"

	"github.com/viant/taskgate/model/task"
)

// Subject builds the lower-cased text scanned for keywords: module, action,
// category, title, description and the JSON encoding of data.
func Subject(t *task.Task) string {
	if t == nil {
		return ""
	}
	parts := []string{t.Module, t.Action, t.Category, t.Title, t.Description}
	if len(t.Data) > 0 {
		if data, err := json.Marshal(t.Data); err == nil {
			parts = append(parts, string(data))
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Classify returns the first keyword contained in subject. Both are expected
// to be lower case.
func Classify(subject string, keywords []string) (string, bool) {
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(subject, keyword) {
			return keyword, true
		}
	}
	return "", false
}
