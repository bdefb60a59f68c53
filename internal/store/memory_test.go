package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/worldle/apps/go-server/internal/countries"
	"github.com/robalobadob/worldle/apps/go-server/internal/game"
	"github.com/robalobadob/worldle/apps/go-server/internal/geo"
)

var (
	answer = countries.Country{Code: "FR", Name: "France", Point: geo.Point{Lat: 46.2, Lon: 2.2}}
	spain  = countries.Country{Code: "ES", Name: "Spain", Point: geo.Point{Lat: 40.4, Lon: -3.7}}
)

func TestSaveGetIsolation(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	g := game.NewWithAnswer(answer, game.ModeRandom)

	if err := st.Save(ctx, g); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := st.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// Mutating the returned copy must not leak into the store.
	got.Submit(&spain)

	again, _ := st.Get(ctx, g.ID)
	if len(again.Guesses) != 0 {
		t.Fatalf("store mutated through Get copy: %d guesses", len(again.Guesses))
	}

	if _, err := st.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) err = %v", err)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	g := game.NewWithAnswer(answer, game.ModeRandom)
	_ = st.Save(ctx, g)

	err := st.Update(ctx, g.ID, func(g *game.Game) error {
		g.Submit(&spain)
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := st.Get(ctx, g.ID)
	if len(got.Guesses) != 1 {
		t.Fatalf("guesses = %d, want 1", len(got.Guesses))
	}

	boom := errors.New("boom")
	if err := st.Update(ctx, g.ID, func(*game.Game) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Update err = %v, want boom", err)
	}
	if err := st.Update(ctx, "missing", func(*game.Game) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update(missing) err = %v", err)
	}
}

func TestConcurrentDuplicateGuesses(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	g := game.NewWithAnswer(answer, game.ModeRandom)
	_ = st.Save(ctx, g)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.Update(ctx, g.ID, func(g *game.Game) error {
				g.Submit(&spain)
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := st.Get(ctx, g.ID)
	if len(got.Guesses) != 1 {
		t.Fatalf("duplicate guesses slipped through: %d", len(got.Guesses))
	}
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	old := game.NewWithAnswer(answer, game.ModeRandom)
	old.UpdatedAt = time.Now().Add(-2 * time.Hour)
	fresh := game.NewWithAnswer(answer, game.ModeRandom)
	_ = st.Save(ctx, old)
	_ = st.Save(ctx, fresh)

	if n := st.Sweep(ctx, time.Now().Add(-time.Hour)); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if _, err := st.Get(ctx, old.ID); !errors.Is(err, ErrNotFound) {
		t.Fatal("old game survived sweep")
	}
	if _, err := st.Get(ctx, fresh.ID); err != nil {
		t.Fatalf("fresh game swept: %v", err)
	}
}
