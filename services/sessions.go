package services

import (
	"context"
	"sync"

	"github.com/CrowderSoup/kanban-board/database"
)

// Sessions hands out one BoardStore per signed-in user. It is also the
// notifier of those stores: a board committed by one user's store is
// adopted by every other store holding the same board before it is passed
// on to notifier.
//
// Adoption does not wait for a peer's in-flight mutation. A store that
// adopts a board mid-mutation reapplies its own change on top of it when
// the gateway call returns. A change that no longer applies to the adopted
// board, such as a reorder of a column a peer has since added to, is
// dropped from memory until the next reload though the gateway kept it.
type Sessions struct {
	gateway  Gateway
	notifier Notifier
	files    FileStore

	mu     sync.Mutex
	stores map[string]*BoardStore
}

func NewSessions(gateway Gateway, notifier Notifier, files FileStore) *Sessions {
	return &Sessions{
		gateway:  gateway,
		notifier: notifier,
		files:    files,
		stores:   make(map[string]*BoardStore),
	}
}

// Get returns the user's store, loading the board if it has not been
// loaded yet or the last load failed.
func (s *Sessions) Get(ctx context.Context, userID string) (*BoardStore, error) {
	s.mu.Lock()
	store, ok := s.stores[userID]
	if !ok {
		store = NewBoardStore(s.gateway, s, s.files)
		s.stores[userID] = store
	}
	s.mu.Unlock()

	if err := store.ensureLoaded(ctx, userID); err != nil {
		return store, err
	}
	return store, nil
}

// Reset forgets the user's store; the next Get reloads from the gateway.
func (s *Sessions) Reset(userID string) {
	s.mu.Lock()
	store, ok := s.stores[userID]
	delete(s.stores, userID)
	s.mu.Unlock()

	if ok {
		store.Reset()
	}
}

// Publish implements Notifier for the stores it hands out. Committed
// boards are never modified, so peers share the same snapshot.
func (s *Sessions) Publish(boardID string, board *database.Board) {
	s.mu.Lock()
	peers := make([]*BoardStore, 0, len(s.stores))
	for _, store := range s.stores {
		peers = append(peers, store)
	}
	s.mu.Unlock()

	for _, store := range peers {
		if cur := store.current(); cur != nil && cur != board && cur.ID == boardID {
			store.publish(board)
		}
	}
	if s.notifier != nil {
		s.notifier.Publish(boardID, board)
	}
}
