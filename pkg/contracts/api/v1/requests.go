// Package api contains API contract definitions for the lineup session server.
// Version v1 represents the current stable API version.
package api

import (
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

// Session API Requests

// CreateSessionRequest loads a dataset from a path or URL into a new session
type CreateSessionRequest struct {
	Source      string              `json:"source" validate:"required,max=2048"`
	Name        string              `json:"name,omitempty" validate:"omitempty,max=256"`
	Description *domain.Description `json:"description,omitempty"`
}

// DescribeRequest derives descriptions without creating a session
type DescribeRequest struct {
	Source      string              `json:"source" validate:"required,max=2048"`
	Description *domain.Description `json:"description,omitempty"`
}

// SelectionRequest selects rows of one view
type SelectionRequest struct {
	Indices []int `json:"indices" validate:"dive,gte=0"`
}

// ReloadRequest reloads every session loaded from Source
type ReloadRequest struct {
	Source string `json:"source" validate:"required"`
}

// ClientLogRequest forwards a browser log entry to the server log
type ClientLogRequest struct {
	Level   string                 `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message string                 `json:"message" validate:"required,max=4096"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Source  string                 `json:"source,omitempty" validate:"max=256"`
}
