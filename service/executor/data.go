package executor

import (
	"encoding/json"
	"fmt"

	"github.com/viant/taskgate/model/task"
)

// DecodeData converts the free-form task data into v.
func DecodeData(t *task.Task, v interface{}) error {
	if len(t.Data) == 0 {
		return nil
	}
	data, err := json.Marshal(t.Data)
	if err != nil {
		return fmt.Errorf("encode task data: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode task data: %w", err)
	}
	return nil
}
