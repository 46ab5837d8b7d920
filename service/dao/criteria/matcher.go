package criteria

import (
	"github.com/viant/taskgate/service/dao"
)

// Match reports whether every parameter accepts the value returned by field.
// Unknown parameter names (field returns ok=false) do not filter.
func Match(field func(name string) (string, bool), parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		actual, ok := field(parameter.Name)
		if !ok {
			continue
		}
		if !anyOf(actual, parameter.Values()) {
			return false
		}
	}
	return true
}

func anyOf(actual string, candidates []string) bool {
	for _, candidate := range candidates {
		if actual == candidate {
			return true
		}
	}
	return false
}

// Filter returns the items accepted by Match.
func Filter[T any](items []*T, field func(item *T, name string) (string, bool), parameters []*dao.Parameter) []*T {
	if len(parameters) == 0 {
		return items
	}
	ret := make([]*T, 0, len(items))
	for _, item := range items {
		if Match(func(name string) (string, bool) { return field(item, name) }, parameters) {
			ret = append(ret, item)
		}
	}
	return ret
}
