package services

import (
	"sort"
	"sync"
	"time"
)

// SelectionService keeps the submissions an admin has ticked for bulk action,
// one set per review view. A view is identified by an opaque key the dashboard
// mints when it mounts the review screen; the selection lives only in process
// memory and survives any amount of filtering or paging within that view.
type SelectionService struct {
	mu        sync.Mutex
	views     map[string]*viewSelection
	ttl       time.Duration
	lastSweep time.Time
}

type viewSelection struct {
	ids     map[int]struct{}
	touched time.Time
}

// NewSelectionService creates a selection store. Views untouched for longer
// than ttl are discarded on the next access.
func NewSelectionService(ttl time.Duration) *SelectionService {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SelectionService{
		views:     make(map[string]*viewSelection),
		ttl:       ttl,
		lastSweep: time.Now(),
	}
}

func (s *SelectionService) viewLocked(viewKey string) *viewSelection {
	v, ok := s.views[viewKey]
	if !ok {
		v = &viewSelection{ids: make(map[int]struct{})}
		s.views[viewKey] = v
	}
	v.touched = time.Now()
	return v
}

func (s *SelectionService) sweepLocked() {
	now := time.Now()
	if now.Sub(s.lastSweep) < s.ttl/4 {
		return
	}
	for key, v := range s.views {
		if now.Sub(v.touched) > s.ttl {
			delete(s.views, key)
		}
	}
	s.lastSweep = now
}

// Toggle flips membership of one submission id and reports whether the id is
// selected afterwards, plus the new selection size.
func (s *SelectionService) Toggle(viewKey string, submissionID int) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	v := s.viewLocked(viewKey)
	if _, ok := v.ids[submissionID]; ok {
		delete(v.ids, submissionID)
		return false, len(v.ids)
	}
	v.ids[submissionID] = struct{}{}
	return true, len(v.ids)
}

// SelectAllVisible implements the header checkbox: when the current selection
// already equals exactly the visible ids it clears the selection, otherwise
// it replaces the selection with the visible ids.
func (s *SelectionService) SelectAllVisible(viewKey string, visibleIDs []int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	v := s.viewLocked(viewKey)

	want := make(map[int]struct{}, len(visibleIDs))
	for _, id := range visibleIDs {
		if id > 0 {
			want[id] = struct{}{}
		}
	}

	if selectionEqual(v.ids, want) {
		v.ids = make(map[int]struct{})
	} else {
		v.ids = want
	}
	return len(v.ids)
}

func selectionEqual(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

// Snapshot returns the selected ids as a sorted copy. Later selection changes
// never affect a snapshot already taken.
func (s *SelectionService) Snapshot(viewKey string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	v := s.viewLocked(viewKey)
	out := make([]int, 0, len(v.ids))
	for id := range v.ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Size returns the number of selected submissions in the view.
func (s *SelectionService) Size(viewKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	return len(s.viewLocked(viewKey).ids)
}

// Clear empties the selection but keeps the view alive.
func (s *SelectionService) Clear(viewKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	v := s.viewLocked(viewKey)
	v.ids = make(map[int]struct{})
}

// DropView forgets the view entirely, selection included. Called when the
// dashboard navigates away from the review screen.
func (s *SelectionService) DropView(viewKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.views, viewKey)
}
