// internal/store/memory.go
//
// In-memory implementation of the game Store interface.
// Games in progress live here only; a restart drops them.
//
// Characteristics:
//   - Stores *game.Game objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Get returns a clone; mutations go through Update so two requests for
//     the same game never interleave.
//   - Sweep evicts games idle longer than a cutoff.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/worldle/apps/go-server/internal/game"
)

// ErrNotFound is returned for unknown game IDs.
var ErrNotFound = errors.New("store: game not found")

// Store defines the persistence interface for game sessions.
type Store interface {
	// Save persists or replaces a game.
	Save(ctx context.Context, g *game.Game) error

	// Get retrieves a copy of a game by ID.
	Get(ctx context.Context, id string) (*game.Game, error)

	// Update runs fn on the stored game while holding the write lock.
	// fn's error is returned unchanged.
	Update(ctx context.Context, id string, fn func(g *game.Game) error) error

	// Sweep removes games not updated since cutoff and returns how many went.
	Sweep(ctx context.Context, cutoff time.Time) int
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu    sync.RWMutex          // guards games map and the games in it
	games map[string]*game.Game // keyed by Game.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{games: make(map[string]*game.Game)}
}

func (m *memory) Save(ctx context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.games[id]; ok {
		return g.Clone(), nil
	}
	return nil, ErrNotFound
}

func (m *memory) Update(ctx context.Context, id string, fn func(g *game.Game) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return ErrNotFound
	}
	return fn(g)
}

func (m *memory) Sweep(ctx context.Context, cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, g := range m.games {
		if g.UpdatedAt.Before(cutoff) {
			delete(m.games, id)
			n++
		}
	}
	return n
}
