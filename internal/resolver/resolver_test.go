package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/napolitain/upgrade-planner/internal/models"
)

// memSource is an in-memory DataSource keyed by exact requirement
type memSource struct {
	levels map[models.Requirement]*models.Level
	fail   map[models.Requirement]error
	calls  int
}

func newMemSource() *memSource {
	return &memSource{
		levels: make(map[models.Requirement]*models.Level),
		fail:   make(map[models.Requirement]error),
	}
}

func (m *memSource) set(req models.Requirement, prereqs ...models.Requirement) {
	m.levels[req] = &models.Level{Level: req.Level, Requirements: prereqs}
}

func (m *memSource) Level(_ context.Context, req models.Requirement) (*models.Level, error) {
	m.calls++
	if err, ok := m.fail[req]; ok {
		return nil, err
	}
	return m.levels[req], nil
}

func (m *memSource) Name(_ context.Context, typ models.RequirementType, id int64) (string, error) {
	return fmt.Sprintf("%s-%d", typ, id), nil
}

func building(id int64, level int) models.Requirement {
	return models.Requirement{Type: models.RequirementBuilding, ID: id, Level: level}
}

func research(id int64, level int) models.Requirement {
	return models.Requirement{Type: models.RequirementResearch, ID: id, Level: level}
}

func assertNoDuplicates(t *testing.T, root *Node) {
	t.Helper()
	seen := make(map[models.Requirement]bool)
	for _, n := range root.All() {
		if seen[n.Requirement] {
			t.Errorf("duplicate node %v", n.Requirement)
		}
		seen[n.Requirement] = true
	}
}

func TestResolveExplicitChainWithBaseline(t *testing.T) {
	src := newMemSource()
	src.set(research(10, 1))
	src.set(research(10, 2))
	src.set(research(10, 3))

	base := research(10, 1)
	root, err := New(src).Resolve(context.Background(), []models.Requirement{research(10, 3), research(10, 2)}, &base)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if root.Requirement != research(10, 3) {
		t.Fatalf("root = %v, want research L3", root.Requirement)
	}
	if root.Len() != 2 {
		t.Fatalf("expected 2 nodes, got %d", root.Len())
	}
	if len(root.Children) != 1 || root.Children[0].Requirement != research(10, 2) {
		t.Fatalf("expected single child research L2, got %+v", root.Children)
	}
	if root.Find(research(10, 1)) != nil {
		t.Error("level 1 is satisfied by baseline and must not appear")
	}
	if root.Name != "research-10" {
		t.Errorf("name = %q", root.Name)
	}
}

func TestResolveGapFilling(t *testing.T) {
	src := newMemSource()
	src.set(building(1, 5), research(2, 5))

	satisfied := NewSatisfiedSet()
	satisfied.Add(research(2, 1))

	root, err := New(src).ResolveFrom(context.Background(), []models.Requirement{building(1, 5)}, satisfied)
	if err != nil {
		t.Fatalf("ResolveFrom: %v", err)
	}

	// building L5 -> research L5 -> L4 -> L3 -> L2
	n := root
	for level := 5; level >= 2; level-- {
		if len(n.Children) != 1 {
			t.Fatalf("expected 1 child below %v, got %d", n.Requirement, len(n.Children))
		}
		n = n.Children[0]
		if n.Requirement != research(2, level) {
			t.Fatalf("expected research L%d, got %v", level, n.Requirement)
		}
		if n.Depth != 6-level {
			t.Errorf("research L%d depth = %d, want %d", level, n.Depth, 6-level)
		}
	}
	if len(n.Children) != 0 {
		t.Errorf("gap fill must stop at the satisfied level, got %v", n.Children[0].Requirement)
	}
	if !satisfied.Has(research(2, 1)) || satisfied.Has(research(2, 5)) {
		t.Error("caller satisfied set must not be mutated")
	}
}

func TestResolveSharedDependencyAppearsOnce(t *testing.T) {
	src := newMemSource()
	src.set(building(1, 2), research(10, 1), research(11, 1))
	src.set(research(10, 1), building(5, 2))
	src.set(research(11, 1), building(5, 2))

	root, err := New(src).Resolve(context.Background(), []models.Requirement{building(1, 2)}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	assertNoDuplicates(t, root)

	if root.Find(building(5, 2)) == nil || root.Find(building(5, 1)) == nil {
		t.Fatal("shared dependency and its gap-filled level must be present")
	}
	if root.Len() != 5 {
		t.Errorf("expected 5 nodes, got %d", root.Len())
	}
}

func TestResolveSkipsPendingLevels(t *testing.T) {
	src := newMemSource()
	// Level 3 names level 2 of itself, which is already queued explicitly
	src.set(research(10, 3), research(10, 2))
	src.set(research(10, 2))

	root, err := New(src).Resolve(context.Background(), []models.Requirement{research(10, 3), research(10, 2)}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	assertNoDuplicates(t, root)
	if root.Len() != 2 {
		t.Errorf("expected the explicit chain only, got %d nodes", root.Len())
	}
	if root.Find(research(10, 2)) == nil {
		t.Fatal("explicit level 2 must stay in the tree")
	}
}

func TestResolveBaselinePrunesImpliedPrerequisites(t *testing.T) {
	src := newMemSource()
	src.set(building(1, 3), research(20, 4))
	src.set(building(1, 4), research(20, 3), research(21, 1))

	base := building(1, 3)
	root, err := New(src).Resolve(context.Background(), []models.Requirement{building(1, 4)}, &base)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for _, n := range root.All() {
		if n.Type == models.RequirementResearch && n.ID == 20 {
			t.Errorf("research 20 L%d is implied by the baseline", n.Level)
		}
	}
	if root.Find(research(21, 1)) == nil {
		t.Error("research 21 is not covered by the baseline")
	}
}

func TestResolveFiltersOutOfScopeTypes(t *testing.T) {
	src := newMemSource()
	faction := models.Requirement{Type: models.RequirementFactionRank, ID: 3, Level: 2}
	src.set(building(1, 1), faction, research(4, 1))

	root, err := New(src).Resolve(context.Background(), []models.Requirement{building(1, 1)}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if root.Find(faction) != nil {
		t.Error("faction rank prerequisites are not expanded")
	}
	if root.Find(research(4, 1)) == nil {
		t.Error("research prerequisite missing")
	}
}

func TestResolveExplicitOutOfScopeIsLeaf(t *testing.T) {
	src := newMemSource()
	ship := models.Requirement{Type: models.RequirementShipTier, ID: 9, Level: 2}

	root, err := New(src).Resolve(context.Background(), []models.Requirement{ship}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if root.Requirement != ship || len(root.Children) != 0 {
		t.Fatalf("unexpected tree %+v", root)
	}
	if src.calls != 0 {
		t.Errorf("out of scope types must not be fetched, got %d calls", src.calls)
	}
}

func TestResolveUnknownEntityIsLeaf(t *testing.T) {
	src := newMemSource()
	src.set(building(1, 1), research(404, 1))

	root, err := New(src).Resolve(context.Background(), []models.Requirement{building(1, 1)}, nil)
	if err != nil {
		t.Fatalf("unknown entities must not be an error: %v", err)
	}
	n := root.Find(research(404, 1))
	if n == nil || len(n.Children) != 0 {
		t.Fatalf("unknown entity should be a leaf, got %+v", n)
	}
}

func TestResolveZeroLevelNotFetched(t *testing.T) {
	src := newMemSource()
	if _, err := New(src).Resolve(context.Background(), []models.Requirement{building(1, 0)}, nil); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if src.calls != 0 {
		t.Errorf("level 0 must not be fetched, got %d calls", src.calls)
	}
}

func TestResolvePropagatesFetchFailure(t *testing.T) {
	errBoom := errors.New("connection reset")
	src := newMemSource()
	src.set(building(1, 2), research(3, 1))
	src.fail[research(3, 1)] = errBoom

	_, err := New(src).Resolve(context.Background(), []models.Requirement{building(1, 2)}, nil)
	if err != errBoom {
		t.Fatalf("expected the transport error unchanged, got %v", err)
	}

	base := research(3, 1)
	_, err = New(src).Resolve(context.Background(), []models.Requirement{building(1, 2)}, &base)
	if err != errBoom {
		t.Fatalf("closure must propagate the transport error unchanged, got %v", err)
	}
}

func TestResolveEmpty(t *testing.T) {
	_, err := New(newMemSource()).Resolve(context.Background(), nil, nil)
	if !errors.Is(err, ErrNoRequirements) {
		t.Fatalf("expected ErrNoRequirements, got %v", err)
	}
}

func TestResolveSatisfiedRootIsKept(t *testing.T) {
	src := newMemSource()
	src.set(building(1, 2), research(3, 1))

	satisfied := NewSatisfiedSet()
	satisfied.AddThrough(building(1, 2))

	root, err := New(src).ResolveFrom(context.Background(), []models.Requirement{building(1, 2)}, satisfied)
	if err != nil {
		t.Fatalf("ResolveFrom: %v", err)
	}
	if root == nil || root.Len() != 1 {
		t.Fatalf("satisfied root must be returned alone, got %+v", root)
	}
}

func TestClosure(t *testing.T) {
	src := newMemSource()
	src.set(building(1, 3), research(2, 2))
	src.set(building(1, 2), research(2, 4))
	src.set(research(2, 2), building(7, 1))

	satisfied, err := New(src).Closure(context.Background(), building(1, 3))
	if err != nil {
		t.Fatalf("Closure: %v", err)
	}

	tests := []struct {
		key  models.EntityKey
		want int
	}{
		{building(1, 0).Entity(), 3},
		{research(2, 0).Entity(), 4},
		{building(7, 0).Entity(), 1},
	}
	for _, tt := range tests {
		levels := satisfied.Levels(tt.key)
		if len(levels) != tt.want {
			t.Errorf("%v: levels %v, want 1..%d", tt.key, levels, tt.want)
			continue
		}
		for i, l := range levels {
			if l != i+1 {
				t.Errorf("%v: levels %v are not contiguous from 1", tt.key, levels)
				break
			}
		}
	}
}

func TestMonotonicSatisfaction(t *testing.T) {
	src := newMemSource()
	src.set(building(1, 5), research(2, 6))
	src.set(building(1, 6), research(2, 7), research(2, 3))
	src.set(research(2, 7), building(8, 2))

	base := building(1, 5)
	r := New(src)
	closure, err := r.Closure(context.Background(), base)
	if err != nil {
		t.Fatalf("Closure: %v", err)
	}
	root, err := r.Resolve(context.Background(), []models.Requirement{building(1, 6)}, &base)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	for _, n := range root.All()[1:] {
		if n.Level <= closure.Highest(n.Entity()) {
			t.Errorf("%v is covered by the baseline closure", n.Requirement)
		}
	}
	if root.Find(research(2, 7)) == nil {
		t.Error("research L7 exceeds the baseline and must appear")
	}
}

func TestResolveFastStopsAtTarget(t *testing.T) {
	src := newMemSource()
	src.set(building(1, 3), research(2, 1), building(5, 2))
	src.set(building(5, 2), building(6, 1))
	src.set(research(2, 1), building(9, 1))

	got, err := New(src).ResolveFast(context.Background(), []models.Requirement{building(1, 3)}, research(2, 4))
	if err != nil {
		t.Fatalf("ResolveFast: %v", err)
	}
	want := []models.Requirement{building(1, 3), research(2, 1), building(5, 2), building(6, 1)}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestResolveFastTerminatesOnCycles(t *testing.T) {
	src := newMemSource()
	src.set(building(1, 1), building(2, 1))
	src.set(building(2, 1), building(1, 1))

	got, err := New(src).ResolveFast(context.Background(), []models.Requirement{building(1, 1)}, research(99, 1))
	if err != nil {
		t.Fatalf("ResolveFast: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 visited requirements, got %v", got)
	}
}

func TestSatisfiedHighest(t *testing.T) {
	s := NewSatisfiedSet()
	key := models.EntityKey{Type: models.RequirementBuilding, ID: 5}
	if s.Highest(key) != 0 {
		t.Error("unknown entity has no satisfied level")
	}
	s.Add(models.Requirement{Type: models.RequirementBuilding, ID: 5, Level: 4})
	s.AddThrough(models.Requirement{Type: models.RequirementBuilding, ID: 5, Level: 2})
	if got := s.Highest(key); got != 4 {
		t.Errorf("Highest = %d, want 4", got)
	}
}

func BenchmarkResolveDeepChain(b *testing.B) {
	src := newMemSource()
	for id := int64(1); id < 40; id++ {
		for level := 1; level <= 30; level++ {
			src.set(building(id, level), building(id+1, level), research(id, level))
		}
	}
	r := New(src)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Resolve(ctx, []models.Requirement{building(1, 30)}, nil); err != nil {
			b.Fatal(err)
		}
	}
}
