package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sgratzl/lineup-if-fi/internal/dataset"
	"github.com/sgratzl/lineup-if-fi/internal/ranking"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

var (
	// ErrNotFound is returned for unknown session ids
	ErrNotFound = errors.New("session not found")
	// ErrUnknownSide is returned for a side other than items or features
	ErrUnknownSide = errors.New("unknown view side")
)

// Side names one of the two linked views
type Side string

const (
	SideItems    Side = "items"
	SideFeatures Side = "features"
)

// ParseSide validates a side name
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideItems, SideFeatures:
		return Side(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSide, s)
}

// Other returns the linked side
func (s Side) Other() Side {
	if s == SideItems {
		return SideFeatures
	}
	return SideItems
}

// View is one table of a session: its data, description and visible columns
type View struct {
	Side        Side
	Dataset     *dataset.Dataset
	Description domain.Description
	Ranking     *ranking.Ranking
	Selection   []int
}

// NewView creates a view with its initial ranking
func NewView(side Side, ds *dataset.Dataset, desc domain.Description) *View {
	return &View{
		Side:        side,
		Dataset:     ds,
		Description: desc,
		Ranking:     ranking.NewRanking(desc),
		Selection:   []int{},
	}
}

// Snapshot is a consistent, read-only copy of a view
type Snapshot struct {
	Side        Side               `json:"side"`
	Name        string             `json:"name"`
	Description domain.Description `json:"description"`
	Ranking     *ranking.Ranking   `json:"ranking"`
	Selection   []int              `json:"selection"`
	Order       []int              `json:"order"`
	Columns     []string           `json:"columns"`
	Rows        [][]string         `json:"rows"`
	Revision    int64              `json:"revision"`
}

// SelectionResult describes how a selection changed the linked view
type SelectionResult struct {
	SessionID string             `json:"sessionId"`
	Source    Side               `json:"source"`
	Target    Side               `json:"target"`
	Selection []int              `json:"selection"`
	Link      ranking.LinkResult `json:"link"`
	Ranking   *ranking.Ranking   `json:"ranking"`
	Revision  int64              `json:"revision"`
}

// ViewSummary gives the shape of a view
type ViewSummary struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// Summary describes a session without its data
type Summary struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Source         string      `json:"source"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	Items          ViewSummary `json:"items"`
	Features       ViewSummary `json:"features"`
	Revision       int64       `json:"revision"`
	LayoutRevision int64       `json:"layoutRevision"`
}

// Session owns the two linked views of one loaded dataset
type Session struct {
	mu sync.RWMutex

	id        string
	name      string
	source    string
	createdAt time.Time
	updatedAt time.Time

	items    *View
	features *View

	revision       int64
	layoutRevision int64
}

// New creates a session over a pair of views
func New(name, source string, items, features *View) *Session {
	now := time.Now()
	return &Session{
		id:        uuid.New().String(),
		name:      name,
		source:    source,
		createdAt: now,
		updatedAt: now,
		items:     items,
		features:  features,
	}
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// Source returns where the session's data came from
func (s *Session) Source() string {
	return s.source
}

func (s *Session) view(side Side) (*View, error) {
	switch side {
	case SideItems:
		return s.items, nil
	case SideFeatures:
		return s.features, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSide, side)
}

// Select records a row selection on side and links the other view so that it
// shows the columns standing for the selected rows.
func (s *Session) Select(side Side, indices []int) (SelectionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source, err := s.view(side)
	if err != nil {
		return SelectionResult{}, err
	}
	target, _ := s.view(side.Other())

	selection := make([]int, 0, len(indices))
	seen := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= source.Dataset.Len() || seen[i] {
			continue
		}
		seen[i] = true
		selection = append(selection, i)
	}
	source.Selection = selection

	link := target.Ranking.Link(target.Description.Columns, selection)

	s.revision++
	s.updatedAt = time.Now()

	return SelectionResult{
		SessionID: s.id,
		Source:    side,
		Target:    target.Side,
		Selection: append([]int(nil), selection...),
		Link:      link,
		Ranking:   target.Ranking.Clone(),
		Revision:  s.revision,
	}, nil
}

// Relayout bumps the layout revision of the live views. Data, rankings and
// selections are left untouched.
func (s *Session) Relayout() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layoutRevision++
	return s.layoutRevision
}

// Replace swaps in freshly loaded views and drops the selections
func (s *Session) Replace(items, features *View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.features = features
	s.revision++
	s.updatedAt = time.Now()
}

// Snapshot copies the current state of one view
func (s *Session) Snapshot(side Side) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, err := s.view(side)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Side:        v.Side,
		Name:        v.Dataset.Name,
		Description: v.Description,
		Ranking:     v.Ranking.Clone(),
		Selection:   append([]int{}, v.Selection...),
		Order:       v.Ranking.Order(v.Dataset),
		Columns:     v.Dataset.Columns(),
		Rows:        v.Dataset.Records(),
		Revision:    s.revision,
	}, nil
}

// Dataset returns the data behind one view
func (s *Session) Dataset(side Side) (*dataset.Dataset, domain.Description, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, err := s.view(side)
	if err != nil {
		return nil, domain.Description{}, err
	}
	return v.Dataset, v.Description, nil
}

// Summary describes the session
func (s *Session) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Summary{
		ID:             s.id,
		Name:           s.name,
		Source:         s.source,
		CreatedAt:      s.createdAt,
		UpdatedAt:      s.updatedAt,
		Items:          ViewSummary{Rows: s.items.Dataset.Len(), Columns: len(s.items.Description.Columns)},
		Features:       ViewSummary{Rows: s.features.Dataset.Len(), Columns: len(s.features.Description.Columns)},
		Revision:       s.revision,
		LayoutRevision: s.layoutRevision,
	}
}

// Store keeps the live sessions in memory
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Add registers a session
func (st *Store) Add(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.id] = s
}

// Get looks a session up by id
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Delete removes a session
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(st.sessions, id)
	return nil
}

// List returns every session, oldest first
func (st *Store) List() []*Session {
	st.mu.RLock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	st.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].id < out[j].id
		}
		return out[i].createdAt.Before(out[j].createdAt)
	})
	return out
}

// BySource returns the sessions loaded from source
func (st *Store) BySource(source string) []*Session {
	var out []*Session
	for _, s := range st.List() {
		if s.source == source {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of sessions
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
