package reconcile

import (
	"sync"

	"github.com/alejandrodnm/roundbet/internal/domain"
)

// ViewStore owns the reconciled View. One writer replaces it wholesale, any
// number of readers take snapshots.
type ViewStore struct {
	mu      sync.RWMutex
	view    domain.View
	updates chan domain.View
}

// NewViewStore returns an empty, unsynced store.
func NewViewStore() *ViewStore {
	return &ViewStore{updates: make(chan domain.View, 1)}
}

// Snapshot returns the current view. Expired is copied so callers can't alias
// the stored slice.
func (s *ViewStore) Snapshot() domain.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.view
	v.Expired = append([]domain.ExpiredRound(nil), s.view.Expired...)
	return v
}

// Replace stores v as the new view, last write wins. It stamps the sequence
// number and publishes the result on Updates.
func (s *ViewStore) Replace(v domain.View) domain.View {
	s.mu.Lock()
	v.Seq = s.view.Seq + 1
	s.view = v
	s.mu.Unlock()

	s.publish(v)
	return v
}

// Updates delivers committed views. Only the latest undelivered view is kept.
func (s *ViewStore) Updates() <-chan domain.View {
	return s.updates
}

func (s *ViewStore) publish(v domain.View) {
	for {
		select {
		case s.updates <- v:
			return
		default:
		}
		// descartar el viejo y reintentar
		select {
		case <-s.updates:
		default:
		}
	}
}
