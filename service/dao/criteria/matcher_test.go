package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/viant/taskgate/service/dao"
)

type record struct {
	TaskID string
	Status string
}

func recordField(r *record, name string) (string, bool) {
	switch name {
	case dao.ParamTaskID:
		return r.TaskID, true
	case dao.ParamStatus:
		return r.Status, true
	}
	return "", false
}

func TestFilter(t *testing.T) {
	records := []*record{
		{TaskID: "t1", Status: "pending"},
		{TaskID: "t1", Status: "approved"},
		{TaskID: "t2", Status: "pending"},
	}
	testCases := []struct {
		name       string
		parameters []*dao.Parameter
		expect     []*record
	}{
		{name: "no parameters", expect: records},
		{name: "by status", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamStatus, "pending")}, expect: []*record{records[0], records[2]}},
		{name: "by task and status", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamTaskID, "t1"), dao.NewParameter(dao.ParamStatus, "pending", "approved")}, expect: records[:2]},
		{name: "unknown name ignored", parameters: []*dao.Parameter{dao.NewParameter("Other", "x")}, expect: records},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, Filter(records, recordField, tc.parameters))
		})
	}
}
