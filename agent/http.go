package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/internal/httpclient"
	"github.com/heraldai/herald/version"
)

// HTTPRunner starts executions by POSTing to an agent runner service.
// The runner usually lives on the same machine, so loopback targets
// are allowed.
type HTTPRunner struct {
	baseURL string
	token   string
	client  *httpclient.Outbound
	logger  *zap.SugaredLogger
}

// NewHTTPRunner creates a runner client for the given base URL. token
// may be empty when the runner does not authenticate.
func NewHTTPRunner(baseURL, token string, timeout time.Duration, log *zap.SugaredLogger) *HTTPRunner {
	return &HTTPRunner{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: httpclient.NewWithOptions(timeout, httpclient.Options{
			AllowLoopback: true,
		}),
		logger: log,
	}
}

// StartTask posts the request to the runner's task endpoint. Any 2xx
// response means the execution started.
func (r *HTTPRunner) StartTask(ctx context.Context, req *StartTaskRequest) (*StartTaskResult, error) {
	if r.baseURL == "" {
		return nil, errors.New("agent runner URL is not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode task request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/tasks", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build task request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if r.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "agent runner request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read runner response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(data))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, errors.Newf("agent runner returned status %d: %s", resp.StatusCode, snippet)
	}

	// The execution ID is informational; a runner that omits it still
	// started the work.
	var result StartTaskResult
	if err := json.Unmarshal(data, &result); err != nil {
		r.logger.Debugw("Runner response was not JSON", "status", resp.StatusCode)
	}

	r.logger.Infow("Agent execution started",
		"job_id", req.JobID,
		"execution_id", result.ExecutionID,
		"status", resp.StatusCode)
	return &result, nil
}
