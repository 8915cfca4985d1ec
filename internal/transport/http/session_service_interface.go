package http

import (
	"context"
	"io"

	"github.com/sgratzl/lineup-if-fi/internal/exporter"
	"github.com/sgratzl/lineup-if-fi/internal/files"
	"github.com/sgratzl/lineup-if-fi/internal/services"
	"github.com/sgratzl/lineup-if-fi/internal/session"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/events"
)

// SessionServiceInterface defines the session operations used by the handlers
type SessionServiceInterface interface {
	Load(ctx context.Context, req services.LoadRequest) (session.Summary, error)
	LoadUpload(ctx context.Context, fileName string, r io.Reader, desc *domain.Description) (session.Summary, error)
	Sessions(ctx context.Context) []session.Summary
	Session(ctx context.Context, id string) (session.Summary, error)
	Delete(ctx context.Context, id string) error
	View(ctx context.Context, id, side string) (session.Snapshot, error)
	Select(ctx context.Context, id, side string, indices []int) (session.SelectionResult, error)
	Relayout(ctx context.Context, id string) (events.LayoutUpdateEvent, error)
	Export(ctx context.Context, id, side string, format exporter.Format) (services.ExportResult, error)
}

// DatasetServiceInterface defines the dataset operations used by the handlers
type DatasetServiceInterface interface {
	Datasets(ctx context.Context, pattern string) ([]files.FileInfo, error)
	Describe(ctx context.Context, source string, desc *domain.Description) (services.DescribeResult, error)
	Reload(ctx context.Context, source string) (int, error)
}
