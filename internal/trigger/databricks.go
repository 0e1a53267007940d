package trigger

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// NotebookTask runs one notebook on an existing cluster.
type NotebookTask struct {
	TaskKey        string
	NotebookPath   string
	ClusterID      string
	BaseParameters map[string]string
}

// JobHandle identifies a created Databricks job.
type JobHandle struct {
	JobID int64 `json:"job_id"`
}

// DatabricksClient creates jobs through the Databricks Jobs API 2.1.
type DatabricksClient struct {
	Host       string
	HTTPClient *http.Client
}

// NewDatabricksClient builds a client authenticated with a personal access
// token.
func NewDatabricksClient(ctx context.Context, host, token string) (*DatabricksClient, error) {
	if host == "" {
		return nil, errors.New("databricks: workspace url is required")
	}
	if token == "" {
		return nil, errors.New("databricks: token is required")
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = 30 * time.Second

	return &DatabricksClient{Host: host, HTTPClient: httpClient}, nil
}

type jobTaskPayload struct {
	TaskKey           string              `json:"task_key"`
	ExistingClusterID string              `json:"existing_cluster_id,omitempty"`
	NotebookTask      notebookTaskPayload `json:"notebook_task"`
}

type notebookTaskPayload struct {
	NotebookPath   string            `json:"notebook_path"`
	BaseParameters map[string]string `json:"base_parameters"`
}

type createJobPayload struct {
	Name  string           `json:"name"`
	Tasks []jobTaskPayload `json:"tasks"`
}

// CreateJob registers a job with the given notebook tasks and returns its id.
func (c *DatabricksClient) CreateJob(ctx context.Context, name string, tasks []NotebookTask) (JobHandle, error) {
	if name == "" {
		return JobHandle{}, errors.New("databricks: job name is required")
	}
	if len(tasks) == 0 {
		return JobHandle{}, errors.New("databricks: at least one task is required")
	}

	payload := createJobPayload{Name: name}
	for i, task := range tasks {
		if task.NotebookPath == "" {
			return JobHandle{}, errors.New("databricks: notebook path is required")
		}
		key := task.TaskKey
		if key == "" {
			key = taskKey(task.NotebookPath, i)
		}
		params := task.BaseParameters
		if params == nil {
			params = map[string]string{}
		}
		payload.Tasks = append(payload.Tasks, jobTaskPayload{
			TaskKey:           key,
			ExistingClusterID: task.ClusterID,
			NotebookTask: notebookTaskPayload{
				NotebookPath:   task.NotebookPath,
				BaseParameters: params,
			},
		})
	}

	endpoint := strings.TrimRight(c.Host, "/") + "/api/2.1/jobs/create"

	var handle JobHandle
	if err := postJSON(ctx, c.client(), "databricks", endpoint, payload, &handle); err != nil {
		return JobHandle{}, err
	}
	if handle.JobID == 0 {
		return JobHandle{}, errors.New("databricks: response did not include a job id")
	}
	return handle, nil
}

func (c *DatabricksClient) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// taskKey derives a task key from the notebook's base name. Keys may only
// contain letters, digits, '-' and '_'.
func taskKey(notebookPath string, index int) string {
	base := notebookPath
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		b.WriteString("notebook")
	}
	if index > 0 {
		b.WriteString("_")
		b.WriteString(strconv.Itoa(index))
	}
	return b.String()
}
