package taskqueue

import (
	"encoding/json"

	"github.com/swarmflow/swarmflow/pkg/api"
)

// Tasks are stored as JSON so queue contents stay inspectable with ordinary
// store tooling and readable by non-Go producers.

// EncodeTask serializes a task for storage.
func EncodeTask(t api.Task) ([]byte, error) {
	return json.Marshal(&t)
}

// DecodeTask deserializes a stored task.
func DecodeTask(data []byte) (*api.Task, error) {
	var t api.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
