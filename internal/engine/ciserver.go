package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// HTTPClient is the slice of http.Client the adapter needs; tests inject a
// fake.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CIServerConfig configures the reference HTTP adapter. An empty BaseURL
// switches the adapter into mock mode: runs get synthetic identifiers and no
// network calls are made, which lets the orchestrator run end-to-end without
// a live backend.
type CIServerConfig struct {
	BaseURL string
	Token   string
}

// CIServerEngine drives an external build-automation server over its HTTP
// API. The concrete wire protocol is adapter-internal.
type CIServerEngine struct {
	config     CIServerConfig
	httpClient HTTPClient
	mock       *RunCache
}

func NewCIServerEngine(config CIServerConfig, httpClient HTTPClient) *CIServerEngine {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CIServerEngine{
		config:     config,
		httpClient: httpClient,
		mock:       NewRunCache(),
	}
}

func (e *CIServerEngine) mockMode() bool { return e.config.BaseURL == "" }

// CreateRun implements Engine.
func (e *CIServerEngine) CreateRun(ctx context.Context, req RunRequest) (string, error) {
	if e.mockMode() {
		id := "mock-" + uuid.NewString()
		e.mock.Put(id, req)
		return id, nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", &TriggerError{Backend: e.config.BaseURL, Err: err}
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := e.doRequest(ctx, http.MethodPost, "/api/v1/runs", bytes.NewReader(body), &resp); err != nil {
		return "", &TriggerError{Backend: e.config.BaseURL, Err: err}
	}
	if resp.ID == "" {
		return "", &TriggerError{Backend: e.config.BaseURL, Err: fmt.Errorf("backend returned no run id")}
	}
	return resp.ID, nil
}

// CancelRun implements Engine.
func (e *CIServerEngine) CancelRun(ctx context.Context, externalID string) (bool, error) {
	if e.mockMode() {
		return e.mock.Cancel(externalID), nil
	}
	err := e.doRequest(ctx, http.MethodPost, "/api/v1/runs/"+externalID+"/cancel", nil, nil)
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetArtifacts implements Engine.
func (e *CIServerEngine) GetArtifacts(ctx context.Context, externalID string) ([]Artifact, error) {
	if e.mockMode() {
		return nil, nil
	}
	var resp struct {
		Artifacts []Artifact `json:"artifacts"`
	}
	if err := e.doRequest(ctx, http.MethodGet, "/api/v1/runs/"+externalID+"/artifacts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Artifacts, nil
}

// GetLogs implements Engine. The returned body may be a live stream; the
// caller reads until close.
func (e *CIServerEngine) GetLogs(ctx context.Context, externalID, jobName string) (io.ReadCloser, error) {
	if e.mockMode() {
		req, _, ok := e.mock.Get(externalID)
		if !ok {
			return nil, fmt.Errorf("unknown run %s", externalID)
		}
		logText := fmt.Sprintf("run %s job %s on %s@%s: ok\n", externalID, jobName, req.RepoName, req.CommitSHA)
		return io.NopCloser(strings.NewReader(logText)), nil
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		e.config.BaseURL+"/api/v1/runs/"+externalID+"/logs?job="+jobName, nil)
	if err != nil {
		return nil, err
	}
	e.authorize(httpReq)
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (e *CIServerEngine) doRequest(ctx context.Context, method, path string, body io.Reader, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, e.config.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	e.authorize(req)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	if result == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

func (e *CIServerEngine) authorize(req *http.Request) {
	if e.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.Token)
	}
}
