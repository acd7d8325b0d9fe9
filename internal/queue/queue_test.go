package queue

import (
	"encoding/json"
	"testing"
)

func TestQueueName(t *testing.T) {
	cases := []struct {
		priority Priority
		want     string
	}{
		{PriorityHigh, "high"},
		{PriorityDefault, "default"},
		{PriorityLow, "low"},
		{Priority(""), "default"},
		{Priority("urgent"), "default"},
	}
	for _, tc := range cases {
		if got := QueueName(tc.priority); got != tc.want {
			t.Errorf("QueueName(%q) = %q, want %q", tc.priority, got, tc.want)
		}
	}
}

func TestTaskIDIsStablePerJob(t *testing.T) {
	if TaskID("job-1") != TaskID("job-1") {
		t.Error("same job id must map to the same task id")
	}
	if TaskID("job-1") == TaskID("job-2") {
		t.Error("different job ids must map to different task ids")
	}
}

func TestQueueWeightsFavorHigh(t *testing.T) {
	if QueueWeights["high"] <= QueueWeights["default"] || QueueWeights["default"] <= QueueWeights["low"] {
		t.Errorf("weights must strictly decrease by priority: %v", QueueWeights)
	}
}

func TestGradePayloadJSON(t *testing.T) {
	data, err := json.Marshal(GradePayload{JobID: "job-1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"job_id":"job-1"}` {
		t.Errorf("unexpected payload encoding: %s", data)
	}
}
