package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	apierrors "github.com/sgratzl/lineup-if-fi/internal/errors"
	"github.com/sgratzl/lineup-if-fi/internal/dataset"
	"github.com/sgratzl/lineup-if-fi/internal/exporter"
	"github.com/sgratzl/lineup-if-fi/internal/files"
	"github.com/sgratzl/lineup-if-fi/internal/infrastructure"
	"github.com/sgratzl/lineup-if-fi/internal/pipeline"
	"github.com/sgratzl/lineup-if-fi/internal/session"
	"github.com/sgratzl/lineup-if-fi/internal/validation"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/events"
)

// TracerName is the instrumentation name of service spans
const TracerName = "lineup.service"

// Source kinds reported in metrics
const (
	SourceKindFile   = "file"
	SourceKindURL    = "url"
	SourceKindUpload = "upload"
)

// WebSocketHub pushes session events to connected clients
type WebSocketHub interface {
	BroadcastContext(ctx context.Context, messageType events.MessageType, data interface{})
	ClientCount() int
}

// LoadRequest describes a dataset to load into a new session
type LoadRequest struct {
	Source      string
	Name        string
	Description *domain.Description
}

// DescribeResult holds the derived descriptions of a dataset
type DescribeResult struct {
	Name     string                `json:"name"`
	Source   string                `json:"source"`
	Rows     int                   `json:"rows"`
	Items    domain.Description    `json:"items"`
	Features domain.Description    `json:"features"`
	Steps    []*pipeline.StepState `json:"steps"`
}

// ExportResult is a rendered export file
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ServiceOption configures a LineupService
type ServiceOption func(*LineupService)

// WithHub sets the hub session events are pushed to
func WithHub(hub WebSocketHub) ServiceOption {
	return func(s *LineupService) { s.hub = hub }
}

// WithBusinessMetrics sets the metrics recorded by the service
func WithBusinessMetrics(m *infrastructure.BusinessMetrics) ServiceOption {
	return func(s *LineupService) { s.metrics = m }
}

// WithRunner replaces the default pipeline runner
func WithRunner(r *pipeline.Runner) ServiceOption {
	return func(s *LineupService) { s.runner = r }
}

// WithExporter replaces the default exporter
func WithExporter(e *exporter.Exporter) ServiceOption {
	return func(s *LineupService) { s.exporter = e }
}

// WithDataDir resolves relative sources against dir and lists its datasets
func WithDataDir(dir string) ServiceOption {
	return func(s *LineupService) {
		if dir != "" {
			s.discovery = files.NewDiscovery(dir)
		}
	}
}

// WithRemoteSources allows or forbids http(s) sources
func WithRemoteSources(allow bool) ServiceOption {
	return func(s *LineupService) { s.allowRemote = allow }
}

// WithFetchTimeout bounds remote loads
func WithFetchTimeout(d time.Duration) ServiceOption {
	return func(s *LineupService) { s.fetchTimeout = d }
}

// WithMaxBytes limits the size of local dataset files
func WithMaxBytes(n int64) ServiceOption {
	return func(s *LineupService) { s.maxBytes = n }
}

// WithWatcher enables reloading sessions when their source file changes
func WithWatcher(w *SourceWatcher) ServiceOption {
	return func(s *LineupService) { s.watcher = w }
}

// LineupService loads datasets into linked item/feature sessions and applies
// selections and layout changes to them.
type LineupService struct {
	store     *session.Store
	loader    *dataset.Loader
	runner    *pipeline.Runner
	exporter  *exporter.Exporter
	discovery *files.Discovery
	validator *validation.FileValidator
	watcher   *SourceWatcher
	hub       WebSocketHub
	metrics   *infrastructure.BusinessMetrics
	tracer    trace.Tracer
	logger    *slog.Logger

	allowRemote  bool
	fetchTimeout time.Duration
	maxBytes     int64

	loads singleflight.Group

	mu       sync.Mutex
	supplied map[string]*domain.Description
}

// NewLineupService creates a service over store. Sources are read with loader.
func NewLineupService(store *session.Store, loader *dataset.Loader, logger *slog.Logger, opts ...ServiceOption) *LineupService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &LineupService{
		store:       store,
		loader:      loader,
		logger:      logger.With(slog.String("component", "lineup_service")),
		tracer:      otel.Tracer(TracerName),
		allowRemote: true,
		supplied:    make(map[string]*domain.Description),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(logger, s.metrics)
	}
	if s.exporter == nil {
		s.exporter = exporter.New(logger)
	}
	s.validator = validation.NewFileValidator(logger, s.maxBytes)
	if s.watcher != nil {
		s.watcher.OnChange(s.reloadChanged)
	}
	return s
}

func (s *LineupService) broadcast(ctx context.Context, messageType events.MessageType, data interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastContext(ctx, messageType, data)
}

// resolveSource turns a request source into a loadable source and its metric kind
func (s *LineupService) resolveSource(source string) (string, string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", "", apierrors.NewAppValidationError("source is required")
	}

	if dataset.IsRemote(source) {
		if !s.allowRemote {
			return "", "", apierrors.ErrRemoteSourcesDisabled
		}
		return source, SourceKindURL, nil
	}

	path, err := dataset.ResolvePath(source)
	if err != nil {
		return "", "", err
	}
	if s.discovery != nil && !filepath.IsAbs(path) {
		resolved, err := s.discovery.Resolve(path)
		if err != nil {
			return "", "", apierrors.NewPermissionError(err.Error())
		}
		path = resolved
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if err := s.validator.ValidateDatasetFile(path); err != nil {
		return "", "", classifyFileError(err)
	}
	return path, SourceKindFile, nil
}

func classifyFileError(err error) error {
	switch {
	case errors.Is(err, validation.ErrUnsupportedExtension), errors.Is(err, validation.ErrTemporaryFile):
		return apierrors.New(apierrors.ErrUnsupportedFormat.StatusCode, apierrors.ErrUnsupportedFormat.ErrorCode, err.Error())
	case errors.Is(err, validation.ErrNotAFile):
		return apierrors.NewAppValidationError(err.Error())
	}
	return err
}

// fetch loads source once even when several requests ask for it concurrently.
// The shared load does not stop when one caller goes away; each caller only
// stops waiting for it.
func (s *LineupService) fetch(ctx context.Context, source, kind string) (*dataset.Dataset, error) {
	ch := s.loads.DoChan(source, func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)
		if kind == SourceKindURL && s.fetchTimeout > 0 {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithTimeout(loadCtx, s.fetchTimeout)
			defer cancel()
		}

		start := time.Now()
		ds, err := s.loader.Load(loadCtx, source)
		rows := 0
		if ds != nil {
			rows = ds.Len()
		}
		infrastructure.RecordDatasetLoad(loadCtx, s.metrics, kind, rows, time.Since(start), err)
		if err != nil && kind == SourceKindURL {
			return nil, apierrors.NewNetworkError("remote dataset could not be loaded", err).
				WithContext("source", source)
		}
		return ds, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*dataset.Dataset), nil
	}
}

func (s *LineupService) prepare(ctx context.Context, raw *dataset.Dataset, supplied *domain.Description) (*pipeline.State, []*pipeline.StepState, error) {
	state := &pipeline.State{Raw: raw, Supplied: supplied}
	steps, err := s.runner.Run(ctx, state)
	if err != nil {
		return nil, steps, apierrors.NewDatasetError("dataset could not be prepared", err)
	}
	return state, steps, nil
}

// Load reads a dataset from a file or URL and opens a session on it
func (s *LineupService) Load(ctx context.Context, req LoadRequest) (session.Summary, error) {
	ctx, span := s.tracer.Start(ctx, "LineupService.Load")
	defer span.End()

	source, kind, err := s.resolveSource(req.Source)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return session.Summary{}, err
	}
	span.SetAttributes(attribute.String("source.kind", kind))

	raw, err := s.fetch(ctx, source, kind)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "Failed to load dataset",
			slog.String("source", source),
			slog.String("error", err.Error()))
		return session.Summary{}, err
	}

	sum, err := s.open(ctx, req.Name, source, raw, req.Description)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return session.Summary{}, err
	}
	if kind == SourceKindFile && s.watcher != nil {
		if err := s.watcher.Add(source); err != nil {
			s.logger.WarnContext(ctx, "Failed to watch dataset file",
				slog.String("source", source),
				slog.String("error", err.Error()))
		}
	}
	return sum, nil
}

// LoadUpload opens a session on an uploaded dataset
func (s *LineupService) LoadUpload(ctx context.Context, fileName string, r io.Reader, desc *domain.Description) (session.Summary, error) {
	ctx, span := s.tracer.Start(ctx, "LineupService.LoadUpload")
	defer span.End()

	start := time.Now()
	raw, err := s.loader.Read(ctx, fileName, r)
	rows := 0
	if raw != nil {
		rows = raw.Len()
	}
	infrastructure.RecordDatasetLoad(ctx, s.metrics, SourceKindUpload, rows, time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return session.Summary{}, err
	}
	return s.open(ctx, "", SourceKindUpload+":"+fileName, raw, desc)
}

func (s *LineupService) open(ctx context.Context, name, source string, raw *dataset.Dataset, desc *domain.Description) (session.Summary, error) {
	state, _, err := s.prepare(ctx, raw, desc)
	if err != nil {
		return session.Summary{}, err
	}
	if name == "" {
		name = raw.Name
	}

	sess := session.New(name, source, state.ItemView, state.FeatureView)
	s.store.Add(sess)
	if desc != nil {
		s.mu.Lock()
		s.supplied[sess.ID()] = desc
		s.mu.Unlock()
	}
	infrastructure.RecordActiveSessionChange(ctx, s.metrics, 1)

	sum := sess.Summary()
	s.logger.InfoContext(ctx, "Session created",
		slog.String("session_id", sum.ID),
		slog.String("source", source),
		slog.Int("items", sum.Items.Rows),
		slog.Int("features", sum.Features.Rows))
	s.broadcast(ctx, events.MessageTypeSessionCreated, events.SessionEvent{SessionID: sum.ID, Summary: sum})
	return sum, nil
}

// Describe derives the item and feature descriptions of a source without
// opening a session
func (s *LineupService) Describe(ctx context.Context, source string, desc *domain.Description) (DescribeResult, error) {
	ctx, span := s.tracer.Start(ctx, "LineupService.Describe")
	defer span.End()

	resolved, kind, err := s.resolveSource(source)
	if err != nil {
		return DescribeResult{}, err
	}
	raw, err := s.fetch(ctx, resolved, kind)
	if err != nil {
		return DescribeResult{}, err
	}
	state, steps, err := s.prepare(ctx, raw, desc)
	if err != nil {
		return DescribeResult{Steps: steps}, err
	}
	return DescribeResult{
		Name:     raw.Name,
		Source:   resolved,
		Rows:     raw.Len(),
		Items:    state.ItemDescription,
		Features: state.FeatureDescription,
		Steps:    steps,
	}, nil
}

// Sessions lists every live session
func (s *LineupService) Sessions(ctx context.Context) []session.Summary {
	list := s.store.List()
	out := make([]session.Summary, len(list))
	for i, sess := range list {
		out[i] = sess.Summary()
	}
	return out
}

// Session describes one session
func (s *LineupService) Session(ctx context.Context, id string) (session.Summary, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return session.Summary{}, err
	}
	return sess.Summary(), nil
}

// Delete closes a session
func (s *LineupService) Delete(ctx context.Context, id string) error {
	sess, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.supplied, id)
	s.mu.Unlock()

	if s.watcher != nil && len(s.store.BySource(sess.Source())) == 0 {
		s.watcher.Remove(sess.Source())
	}

	infrastructure.RecordActiveSessionChange(ctx, s.metrics, -1)
	s.logger.InfoContext(ctx, "Session deleted", slog.String("session_id", id))
	s.broadcast(ctx, events.MessageTypeSessionDeleted, events.SessionEvent{SessionID: id})
	return nil
}

// View returns a snapshot of one side of a session
func (s *LineupService) View(ctx context.Context, id, side string) (session.Snapshot, error) {
	sd, err := session.ParseSide(side)
	if err != nil {
		return session.Snapshot{}, err
	}
	sess, err := s.store.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(sd)
}

// Select records a selection on side and links the other view to it
func (s *LineupService) Select(ctx context.Context, id, side string, indices []int) (session.SelectionResult, error) {
	sd, err := session.ParseSide(side)
	if err != nil {
		return session.SelectionResult{}, err
	}
	sess, err := s.store.Get(id)
	if err != nil {
		return session.SelectionResult{}, err
	}

	res, err := sess.Select(sd, indices)
	if err != nil {
		return session.SelectionResult{}, err
	}

	infrastructure.RecordSelectionLink(ctx, s.metrics, string(sd), len(res.Link.Added), len(res.Link.Removed))
	s.logger.DebugContext(ctx, "Selection linked",
		slog.String("session_id", id),
		slog.String("side", string(sd)),
		slog.Int("selected", len(res.Selection)),
		slog.Int("added", len(res.Link.Added)),
		slog.Int("removed", len(res.Link.Removed)))
	s.broadcast(ctx, events.MessageTypeSelectionChanged, res)
	return res, nil
}

// Relayout asks every client to lay out both views of a session again
func (s *LineupService) Relayout(ctx context.Context, id string) (events.LayoutUpdateEvent, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return events.LayoutUpdateEvent{}, err
	}
	ev := events.LayoutUpdateEvent{SessionID: id, LayoutRevision: sess.Relayout()}
	s.broadcast(ctx, events.MessageTypeLayoutUpdate, ev)
	return ev, nil
}

// Export renders one view of a session as CSV or xlsx
func (s *LineupService) Export(ctx context.Context, id, side string, format exporter.Format) (ExportResult, error) {
	table, err := s.exportTable(id, side)
	if err != nil {
		return ExportResult{}, err
	}

	var buf bytes.Buffer
	if err := s.exporter.Export(&buf, format, table); err != nil {
		return ExportResult{}, err
	}
	return ExportResult{
		FileName:    exporter.FileName(table.Name, format),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// ExportFile writes one view of a session into dir and returns the file path
func (s *LineupService) ExportFile(ctx context.Context, id, side string, format exporter.Format, dir string) (string, error) {
	table, err := s.exportTable(id, side)
	if err != nil {
		return "", err
	}
	path, err := s.exporter.ExportFile(dir, format, table)
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return "", apierrors.NewStorageError("export could not be written", err).WithContext("dir", dir)
	}
	return path, err
}

func (s *LineupService) exportTable(id, side string) (exporter.Table, error) {
	sd, err := session.ParseSide(side)
	if err != nil {
		return exporter.Table{}, err
	}
	sess, err := s.store.Get(id)
	if err != nil {
		return exporter.Table{}, err
	}
	ds, desc, err := sess.Dataset(sd)
	if err != nil {
		return exporter.Table{}, err
	}
	return exporter.Table{
		Name:        ds.Name + "-" + string(sd),
		Columns:     ds.Columns(),
		Rows:        ds.Records(),
		Description: desc,
	}, nil
}

// Datasets lists the dataset files of the data directory. A non-empty
// pattern is a glob matched against file names.
func (s *LineupService) Datasets(ctx context.Context, pattern string) ([]files.FileInfo, error) {
	if s.discovery == nil {
		return []files.FileInfo{}, nil
	}
	if pattern != "" {
		found, err := s.discovery.FindFilesByPattern(s.discovery.BasePath(), pattern)
		if found == nil && err == nil {
			found = []files.FileInfo{}
		}
		return found, err
	}
	return s.discovery.FindDatasets(s.discovery.BasePath())
}

// Reload loads source again and swaps the fresh views into every session
// opened on it. It returns the number of sessions reloaded.
func (s *LineupService) Reload(ctx context.Context, source string) (int, error) {
	sessions := s.store.BySource(source)
	if len(sessions) == 0 {
		return 0, fmt.Errorf("%w: no session for source %s", session.ErrNotFound, source)
	}

	kind := SourceKindFile
	if dataset.IsRemote(source) {
		kind = SourceKindURL
	}
	raw, err := s.fetch(ctx, source, kind)
	if err != nil {
		return 0, err
	}

	reloaded := 0
	for _, sess := range sessions {
		s.mu.Lock()
		desc := s.supplied[sess.ID()]
		s.mu.Unlock()

		state, _, err := s.prepare(ctx, raw, desc)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to rebuild session",
				slog.String("session_id", sess.ID()),
				slog.String("error", err.Error()))
			return reloaded, err
		}
		sess.Replace(state.ItemView, state.FeatureView)
		reloaded++

		sum := sess.Summary()
		s.broadcast(ctx, events.MessageTypeSessionReloaded, events.SessionEvent{SessionID: sum.ID, Summary: sum})
	}

	s.logger.InfoContext(ctx, "Sessions reloaded",
		slog.String("source", source),
		slog.Int("sessions", reloaded))
	return reloaded, nil
}

func (s *LineupService) reloadChanged(source string) {
	ctx := infrastructure.ContextWithTraceID(context.Background())
	if _, err := s.Reload(ctx, source); err != nil && !errors.Is(err, session.ErrNotFound) {
		infrastructure.WithError(s.logger, err).WarnContext(ctx, "Reload after file change failed",
			slog.String("source", source))
	}
}

// HandleClientMessage executes a websocket command
func (s *LineupService) HandleClientMessage(ctx context.Context, clientID string, cmd events.Command) (interface{}, error) {
	s.logger.DebugContext(ctx, "Client command",
		slog.String("client_id", clientID),
		slog.String("type", string(cmd.Type)),
		slog.String("session_id", cmd.SessionID))

	switch cmd.Type {
	case events.MessageTypeSelect:
		res, err := s.Select(ctx, cmd.SessionID, cmd.Side, cmd.Indices)
		if err != nil {
			return nil, toProtocolError(err)
		}
		return res, nil
	case events.MessageTypeRelayout:
		ev, err := s.Relayout(ctx, cmd.SessionID)
		if err != nil {
			return nil, toProtocolError(err)
		}
		return ev, nil
	}
	return nil, &events.ProtocolError{Code: events.ErrCodeUnsupportedType, Message: fmt.Sprintf("unsupported command %q", cmd.Type)}
}

func toProtocolError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return &events.ProtocolError{Code: events.ErrCodeSessionNotFound, Message: err.Error()}
	case errors.Is(err, session.ErrUnknownSide):
		return &events.ProtocolError{Code: events.ErrCodeProtocolViolation, Message: err.Error()}
	}
	return err
}

// SessionCount returns the number of live sessions
func (s *LineupService) SessionCount() int {
	return s.store.Len()
}

// Close stops watching source files
func (s *LineupService) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
