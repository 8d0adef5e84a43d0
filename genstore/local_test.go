package genstore

import (
	"context"
	"sync"
	"testing"
)

func TestLocalSnapshotManyIncludesAllAndEpochForMissing(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStoreAt(0)

	keys := []string{"module:a", "module:b", "module:c"}
	// bump b twice -> gen=2
	for i := 0; i < 2; i++ {
		if _, err := s.Bump(ctx, "module:b"); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.SnapshotMany(ctx, keys)
	if err != nil {
		t.Fatal(err)
	}
	if got["module:a"] != 0 || got["module:b"] != 2 || got["module:c"] != 0 {
		t.Fatalf("got=%v want a=0,b=2,c=0", got)
	}
}

func TestLocalSnapshotManyDoesNotMutateInput(t *testing.T) {
	s := NewLocalGenStoreAt(0)

	in := []string{"user:x", "user:y"}
	cp := append([]string(nil), in...)
	if _, err := s.SnapshotMany(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if in[i] != cp[i] {
			t.Fatalf("input mutated at %d: %q -> %q", i, cp[i], in[i])
		}
	}
}

func TestLocalEpochSeparatesProcesses(t *testing.T) {
	ctx := context.Background()
	first := NewLocalGenStoreAt(100)
	second := NewLocalGenStoreAt(200)

	g1, _ := first.Snapshot(ctx, "module:scf")
	g2, _ := second.Snapshot(ctx, "module:scf")
	if g1 != 100 || g2 != 200 {
		t.Fatalf("snapshots = %d, %d", g1, g2)
	}
	if g, _ := first.Bump(ctx, "module:scf"); g != 101 {
		t.Fatalf("bump = %d, want 101", g)
	}
	if NewLocalGenStore().Epoch() == 0 {
		t.Fatal("time based epoch is 0")
	}
}

func TestLocalConcurrentBumps(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStoreAt(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Bump(ctx, "user:scf")
		}()
	}
	wg.Wait()
	if g, _ := s.Snapshot(ctx, "user:scf"); g != 50 {
		t.Fatalf("gen = %d, want 50", g)
	}
}
