package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDatabricksClient_CreateJob(t *testing.T) {
	var gotAuth string
	var payload createJobPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/2.1/jobs/create" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"job_id": 1234}`))
	}))
	defer server.Close()

	client, err := NewDatabricksClient(context.Background(), server.URL, "dapi-test")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	handle, err := client.CreateJob(context.Background(), "Data Processing Job", []NotebookTask{{
		NotebookPath: "/test/notebook",
		ClusterID:    "test-cluster",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle.JobID != 1234 {
		t.Errorf("expected job id 1234, got %d", handle.JobID)
	}
	if gotAuth != "Bearer dapi-test" {
		t.Errorf("unexpected authorization %q", gotAuth)
	}
	if payload.Name != "Data Processing Job" || len(payload.Tasks) != 1 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	task := payload.Tasks[0]
	if task.TaskKey != "notebook" || task.ExistingClusterID != "test-cluster" || task.NotebookTask.NotebookPath != "/test/notebook" {
		t.Errorf("unexpected task %+v", task)
	}
	if task.NotebookTask.BaseParameters == nil {
		t.Error("expected empty base parameters, got nil")
	}
}

func TestDatabricksClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error_code":"PERMISSION_DENIED","message":"invalid token"}`))
	}))
	defer server.Close()

	client, _ := NewDatabricksClient(context.Background(), server.URL, "bad")
	_, err := client.CreateJob(context.Background(), "job", []NotebookTask{{NotebookPath: "/nb"}})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "PERMISSION_DENIED" || apiErr.Message != "invalid token" {
		t.Errorf("unexpected api error %+v", apiErr)
	}
	if apiErr.Temporary() {
		t.Error("403 should not be temporary")
	}
}

func TestDatabricksClient_Validation(t *testing.T) {
	if _, err := NewDatabricksClient(context.Background(), "", "tok"); err == nil {
		t.Error("expected error for missing host")
	}
	if _, err := NewDatabricksClient(context.Background(), "https://x", ""); err == nil {
		t.Error("expected error for missing token")
	}

	client := &DatabricksClient{Host: "http://unused"}
	if _, err := client.CreateJob(context.Background(), "", []NotebookTask{{NotebookPath: "/nb"}}); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := client.CreateJob(context.Background(), "job", nil); err == nil {
		t.Error("expected error for no tasks")
	}
}

func TestTaskKey(t *testing.T) {
	tests := []struct {
		path  string
		index int
		want  string
	}{
		{"/Shared/etl/transform", 0, "transform"},
		{"/Users/me@example.com/my notebook", 0, "my_notebook"},
		{"/Shared/load", 2, "load_2"},
		{"/", 0, "notebook"},
	}
	for _, tt := range tests {
		if got := taskKey(tt.path, tt.index); got != tt.want {
			t.Errorf("taskKey(%q, %d) = %q, want %q", tt.path, tt.index, got, tt.want)
		}
	}
}
