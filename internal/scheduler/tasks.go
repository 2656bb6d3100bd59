package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskArchiveRecording = "calls.recording.archive"

type ArchiveRecordingPayload struct {
	CallID       string `json:"callId"`
	RecordingURL string `json:"recordingUrl"`
}

func NewArchiveRecordingTask(payload ArchiveRecordingPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskArchiveRecording, data), nil
}

func ParseArchiveRecordingPayload(task *asynq.Task) (ArchiveRecordingPayload, error) {
	var payload ArchiveRecordingPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ArchiveRecordingPayload{}, err
	}
	return payload, nil
}
