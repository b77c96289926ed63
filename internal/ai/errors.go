// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials is returned when the selected provider has no key.
	ErrMissingCredentials = errors.New("missing api key")

	// ErrImageUnsupported is returned when the image provider cannot make images.
	ErrImageUnsupported = errors.New("ai: provider does not support image generation")

	// ErrNoImage is returned when the model answered without image data.
	ErrNoImage = errors.New("ai: no image returned")

	// ErrWorkflowTimeout is returned when a workflow run is still pending
	// after the polling budget is spent.
	ErrWorkflowTimeout = errors.New("ai: workflow did not finish in time")
)

// TransportError is a non-2xx answer from a provider.
type TransportError struct {
	Provider string
	Status   int
	Body     string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Status, e.Body)
}

// ProtocolError is a response that does not follow the provider's protocol,
// such as a workflow stream that ends without a result.
type ProtocolError struct {
	Provider string
	Reason   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s protocol error: %s", e.Provider, e.Reason)
}

// WorkflowError is a workflow run that the backend reports as failed.
type WorkflowError struct {
	RunID   string
	Message string
}

func (e *WorkflowError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	if e.RunID == "" {
		return "workflow execution failed: " + msg
	}
	return fmt.Sprintf("workflow %s execution failed: %s", e.RunID, msg)
}
