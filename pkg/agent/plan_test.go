package agent

import (
	"encoding/json"
	"testing"
)

func TestTaskUnmarshal_TypedDetails(t *testing.T) {
	data := `{
		"analysis": "Build a script",
		"tasks": [
			{"task_id": 1, "description": "Make dir", "type": "directory_create", "details": {"path": "src"}},
			{"task_id": 2, "description": "Write file", "type": "file_create", "details": {"path": "src/app.py", "content": "print('hi')"}},
			{"task_id": 3, "description": "Install", "type": "install_dependencies", "details": {"packages": ["flask"]}},
			{"task_id": 4, "description": "Run", "type": "command", "details": {"command": "python src/app.py"}},
			{"task_id": 5, "description": "Check", "type": "validation", "details": {"validation_type": "file_exists", "path": "src/app.py"}}
		],
		"expected_outcome": "Script runs"
	}`

	var plan Plan
	if err := json.Unmarshal([]byte(data), &plan); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(plan.Tasks) != 5 {
		t.Fatalf("Expected 5 tasks, got %d", len(plan.Tasks))
	}

	if d, ok := plan.Tasks[0].Details.(DirectoryDetails); !ok || d.Path != "src" {
		t.Errorf("Task 1 details = %#v", plan.Tasks[0].Details)
	}
	if d, ok := plan.Tasks[1].Details.(FileDetails); !ok || d.Content != "print('hi')" {
		t.Errorf("Task 2 details = %#v", plan.Tasks[1].Details)
	}
	install, ok := plan.Tasks[2].Details.(InstallDetails)
	if !ok {
		t.Fatalf("Task 3 details = %#v", plan.Tasks[2].Details)
	}
	if install.PackageManager != "pip" {
		t.Errorf("Expected pip default, got %q", install.PackageManager)
	}
	if d, ok := plan.Tasks[3].Details.(CommandDetails); !ok || d.Command != "python src/app.py" {
		t.Errorf("Task 4 details = %#v", plan.Tasks[3].Details)
	}
	if d, ok := plan.Tasks[4].Details.(ValidationDetails); !ok || d.ValidationType != "file_exists" {
		t.Errorf("Task 5 details = %#v", plan.Tasks[4].Details)
	}
}

func TestTaskUnmarshal_UnknownTypePreservesPayload(t *testing.T) {
	data := `{"task_id": 7, "description": "Mystery", "type": "teleport", "details": {"destination": "mars"}}`

	var task Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	raw, ok := task.Details.(RawDetails)
	if !ok {
		t.Fatalf("Expected RawDetails, got %#v", task.Details)
	}

	var payload map[string]string
	if err := json.Unmarshal(raw.Raw, &payload); err != nil {
		t.Fatalf("Raw payload unmarshal: %v", err)
	}
	if payload["destination"] != "mars" {
		t.Errorf("Payload = %v", payload)
	}
}

func TestTaskUnmarshal_MissingDetails(t *testing.T) {
	data := `{"task_id": 1, "description": "Bare", "type": "command"}`

	var task Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if d, ok := task.Details.(CommandDetails); !ok || d.Command != "" {
		t.Errorf("Details = %#v", task.Details)
	}
}

func TestTaskMarshal_RoundTrip(t *testing.T) {
	task := Task{
		TaskID:      3,
		Description: "Write file",
		Type:        TaskFileCreate,
		Details:     FileDetails{Path: "a.txt", Content: "hello"},
	}

	data, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var back Task
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if d, ok := back.Details.(FileDetails); !ok || d.Path != "a.txt" || d.Content != "hello" {
		t.Errorf("Round trip details = %#v", back.Details)
	}
}
