package server

import (
	"errors"
	"testing"
)

func TestTaskLifecycle(t *testing.T) {
	tm := NewTaskManager()

	// 1. A new task is registered and starts in the "started" state.
	task := tm.NewTask()
	if task.ID == "" {
		t.Fatal("new task has no ID")
	}
	if got, found := tm.GetTask(task.ID); !found || got != task {
		t.Fatalf("GetTask(%q): got %v/%v, want the registered task", task.ID, got, found)
	}
	if info := task.Info(); info.Status != TaskStatusStarted {
		t.Errorf("initial status: got %q, want %q", info.Status, TaskStatusStarted)
	}

	// 2. Progress updates are visible in the snapshot.
	task.SetStatus(TaskStatusRunning)
	task.SetProgress("halfway there")
	info := task.Info()
	if info.Status != TaskStatusRunning || info.ProgressMessage != "halfway there" {
		t.Errorf("running snapshot: got %+v", info)
	}

	// 3. A result completes the task.
	task.SetResult(ImportResult{Dataset: "shop", Loaded: 10, Recorded: 9})
	info = task.Info()
	if info.Status != TaskStatusCompleted {
		t.Errorf("completed status: got %q, want %q", info.Status, TaskStatusCompleted)
	}
	if result, ok := info.Result.(ImportResult); !ok || result.Recorded != 9 {
		t.Errorf("completed result: got %v", info.Result)
	}

	// 4. Failures record the message and flip the status.
	failed := tm.NewTask()
	failed.SetError(errors.New("disk full"))
	info = failed.Info()
	if info.Status != TaskStatusFailed || info.Error != "disk full" {
		t.Errorf("failed snapshot: got %+v", info)
	}

	// 5. Unknown IDs report not found.
	if _, found := tm.GetTask("missing"); found {
		t.Error("GetTask(missing): got found, want not found")
	}
}
