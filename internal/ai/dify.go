// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultDifyBaseURL is the hosted Dify API.
	DefaultDifyBaseURL = "https://api.dify.ai/v1"

	// DefaultWorkflowUser identifies this application to the workflow.
	DefaultWorkflowUser = "xhs-creator-user"

	// DefaultMaxPolls and DefaultPollInterval bound the status polling used
	// when the stream ends before the run does.
	DefaultMaxPolls     = 20
	DefaultPollInterval = 15 * time.Second

	maxEventSize = 8 << 20
)

// WorkflowConfig tunes workflow runs.
type WorkflowConfig struct {
	User         string
	MaxPolls     int
	PollInterval time.Duration
}

func (c *WorkflowConfig) defaults() {
	if c.User == "" {
		c.User = DefaultWorkflowUser
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = DefaultMaxPolls
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
}

// difyWorkflow runs a Dify workflow in streaming mode.
type difyWorkflow struct {
	cfg     ProviderConfig
	wf      WorkflowConfig
	client  *http.Client
	baseURL string
}

func newDifyWorkflow(cfg ProviderConfig, wf WorkflowConfig) *difyWorkflow {
	wf.defaults()
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultDifyBaseURL
	}
	return &difyWorkflow{cfg: cfg, wf: wf, client: client, baseURL: base}
}

// difyEvent is one server-sent event of a streaming run.
type difyEvent struct {
	Event         string          `json:"event"`
	WorkflowRunID string          `json:"workflow_run_id"`
	Message       string          `json:"message"`
	Data          json.RawMessage `json:"data"`
}

// difyRunData is the data of workflow_started/finished events and the body
// of a run status lookup.
type difyRunData struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Outputs json.RawMessage `json:"outputs"`
	Error   string          `json:"error"`
}

// Run starts the workflow with inputs and returns its final outputs.
func (d *difyWorkflow) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(map[string]any{
		"inputs":        inputs,
		"response_mode": "streaming",
		"user":          d.wf.User,
	})
	if err != nil {
		return nil, fmt.Errorf("dify marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/workflows/run", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("dify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dify http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &TransportError{Provider: "dify", Status: resp.StatusCode, Body: string(body)}
	}

	outputs, runID, err := d.readStream(resp.Body)
	if err != nil {
		return nil, err
	}
	if outputs != nil {
		return outputs, nil
	}
	if runID == "" {
		return nil, &ProtocolError{Provider: "dify", Reason: "stream ended without a workflow result"}
	}

	slog.Info("dify stream ended before the run finished, polling", "run_id", runID)
	return d.poll(ctx, runID)
}

// readStream consumes the event stream. It returns the outputs of a
// finished run, or the run id if the stream ended first.
func (d *difyWorkflow) readStream(r io.Reader) (map[string]any, string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxEventSize)

	var runID string
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		raw := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if raw == "" || raw == "[DONE]" {
			continue
		}

		var ev difyEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			slog.Warn("dify: skipping unparseable event", "error", err, "data", truncate(raw, 200))
			continue
		}
		if ev.WorkflowRunID != "" {
			runID = ev.WorkflowRunID
		}

		switch ev.Event {
		case "workflow_finished":
			var data difyRunData
			if err := json.Unmarshal(ev.Data, &data); err != nil {
				return nil, runID, &ProtocolError{Provider: "dify", Reason: "malformed workflow_finished event: " + err.Error()}
			}
			if data.Status == "failed" || data.Status == "stopped" {
				return nil, runID, &WorkflowError{RunID: runID, Message: data.Error}
			}
			outputs, err := decodeOutputs(data.Outputs)
			if err != nil {
				return nil, runID, err
			}
			return outputs, runID, nil
		case "workflow_execution_failed":
			var data difyRunData
			_ = json.Unmarshal(ev.Data, &data)
			return nil, runID, &WorkflowError{RunID: runID, Message: data.Error}
		case "error":
			return nil, runID, &WorkflowError{RunID: runID, Message: ev.Message}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, runID, fmt.Errorf("dify read stream: %w", err)
	}
	return nil, runID, nil
}

// poll checks the run status until it settles or the budget runs out.
func (d *difyWorkflow) poll(ctx context.Context, runID string) (map[string]any, error) {
	for attempt := 0; attempt < d.wf.MaxPolls; attempt++ {
		data, err := d.status(ctx, runID)
		if err != nil {
			return nil, err
		}

		switch data.Status {
		case "succeeded":
			return decodeOutputs(data.Outputs)
		case "failed", "stopped":
			return nil, &WorkflowError{RunID: runID, Message: data.Error}
		}

		slog.Debug("dify run pending", "run_id", runID, "status", data.Status, "attempt", attempt+1)
		if err := sleep(ctx, d.wf.PollInterval); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("dify run %s: %w", runID, ErrWorkflowTimeout)
}

func (d *difyWorkflow) status(ctx context.Context, runID string) (*difyRunData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/workflows/run/"+runID, nil)
	if err != nil {
		return nil, fmt.Errorf("dify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dify http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("dify read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Provider: "dify", Status: resp.StatusCode, Body: truncate(string(body), 4096)}
	}

	var data difyRunData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("dify unmarshal: %w", err)
	}
	return &data, nil
}

// decodeOutputs accepts outputs as a JSON object or as a string holding one.
func decodeOutputs(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]any{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &ProtocolError{Provider: "dify", Reason: "malformed outputs: " + err.Error()}
		}
		raw = []byte(s)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ProtocolError{Provider: "dify", Reason: "malformed outputs: " + err.Error()}
	}
	return out, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
