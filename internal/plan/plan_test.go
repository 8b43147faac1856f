package plan

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/napolitain/upgrade-planner/internal/efficiency"
	"github.com/napolitain/upgrade-planner/internal/loader"
	"github.com/napolitain/upgrade-planner/internal/models"
	"github.com/napolitain/upgrade-planner/internal/repository"
)

const (
	parsteel  models.ResourceID = 2453327618
	tritanium models.ResourceID = 1781346845
)

func testPlanner(t *testing.T) *Planner {
	t.Helper()
	src := loader.NewSource(loader.Dir("../../data"))
	engine := efficiency.New(
		repository.NewBuffs(src, 0),
		efficiency.ForRequirements(models.AllRequirementTypes()),
		efficiency.WithLogger(log.New(io.Discard, "", 0)),
	)
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("Failed to load buffs: %v", err)
	}
	return New(repository.NewRequirements(src, 0), engine)
}

func refiningRequest() Request {
	return Request{Type: models.RequirementResearch, ID: 10, From: 0, To: 3, Ops: 2}
}

func TestChain(t *testing.T) {
	chain, baseline := Request{Type: models.RequirementResearch, ID: 10, From: 2, To: 5}.Chain()
	if len(chain) != 3 || chain[0].Level != 5 || chain[2].Level != 3 {
		t.Errorf("chain = %v, want levels 5..3", chain)
	}
	if baseline == nil || *baseline != (models.Requirement{Type: models.RequirementResearch, ID: 10, Level: 2}) {
		t.Errorf("baseline = %v", baseline)
	}

	_, baseline = Request{Type: models.RequirementResearch, ID: 10, To: 1, Ops: 12}.Chain()
	if baseline == nil || baseline.Type != models.RequirementBuilding || baseline.ID != OperationsID || baseline.Level != 12 {
		t.Errorf("operations baseline = %v", baseline)
	}

	_, baseline = Request{Type: models.RequirementResearch, ID: 10, To: 1}.Chain()
	if baseline != nil {
		t.Errorf("no baseline expected, got %v", baseline)
	}
}

func TestBuildRejectsEmptyRange(t *testing.T) {
	_, err := testPlanner(t).Build(context.Background(), Request{Type: models.RequirementResearch, ID: 10, From: 3, To: 3})
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestBuildBaseCost(t *testing.T) {
	p := testPlanner(t)
	pl, err := p.Build(context.Background(), refiningRequest())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Research 1..3, Research Station 1..2 and Operations 3; Operations 1..2 are owned
	if pl.Root.Len() != 6 {
		t.Errorf("tree has %d nodes, want 6", pl.Root.Len())
	}
	if pl.Root.Find(models.Requirement{Type: models.RequirementBuilding, ID: OperationsID, Level: 2}) != nil {
		t.Error("baseline levels must be pruned")
	}

	total := pl.Base.Total
	if total.BaseCost.Get(parsteel) != 1850 || total.BaseCost.Get(tritanium) != 7 {
		t.Errorf("base cost = %v", total.BaseCost)
	}
	researchTime, _ := models.TimeResource(models.TimeResearch, 1)
	buildGen0, _ := models.TimeResource(models.TimeBuilding, 0)
	buildGen1, _ := models.TimeResource(models.TimeBuilding, 1)
	if total.BaseTime.Get(researchTime) != 135 || total.BaseTime.Get(buildGen0) != 240 || total.BaseTime.Get(buildGen1) != 1500 {
		t.Errorf("base time = %v", total.BaseTime)
	}

	want := []int64{1001, 1002, 1003, 2001, 3001, 3002, 3003}
	if len(pl.Prepared.BuffIDs) != len(want) {
		t.Fatalf("buffs in play = %v, want %v", pl.Prepared.BuffIDs, want)
	}
	for i, id := range want {
		if pl.Prepared.BuffIDs[i] != id {
			t.Errorf("buff %d = %d, want %d", i, pl.Prepared.BuffIDs[i], id)
		}
	}
}

func TestRecalculate(t *testing.T) {
	p := testPlanner(t)
	pl, err := p.Build(context.Background(), refiningRequest())
	if err != nil {
		t.Fatal(err)
	}

	inputs := p.Inputs(pl)
	for i := range inputs {
		switch inputs[i].Ref.ID {
		case 1001, 3001:
			inputs[i].Select(3)
		}
	}
	s, err := p.Recalculate(pl, inputs)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}

	// 50, 80 and 120 parsteel at 15% standard and 10% true: 40 + 63 + 95
	research := s.ByType[models.RequirementResearch]
	if research.NetCost.Get(parsteel) != 198 || research.NetCost.Get(tritanium) != 2 {
		t.Errorf("research net cost = %v", research.NetCost)
	}
	if s.Total.NetCost.Get(parsteel) != 1798 {
		t.Errorf("total net parsteel = %d, want 1798", s.Total.NetCost.Get(parsteel))
	}

	bonus := p.Bonuses(pl)[models.ResearchCost]
	if got := bonus.Get(parsteel); got < 0.1649 || got > 0.1651 {
		t.Errorf("displayed bonus = %v, want 0.165", got)
	}

	// Deselecting everything brings net back to base
	for i := range inputs {
		inputs[i].Select(0)
	}
	s, err = p.Recalculate(pl, inputs)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Total.NetCost.Equal(s.Total.BaseCost) {
		t.Errorf("net %v != base %v with no inputs", s.Total.NetCost, s.Total.BaseCost)
	}
}

func TestPlannerWithoutEngine(t *testing.T) {
	src := loader.NewSource(loader.Dir("../../data"))
	p := New(repository.NewRequirements(src, 0), nil)
	pl, err := p.Build(context.Background(), refiningRequest())
	if err != nil {
		t.Fatal(err)
	}
	if p.Inputs(pl) != nil || len(p.Bonuses(pl)) != 0 {
		t.Error("no engine means no inputs and no bonuses")
	}
	s, err := p.Recalculate(pl, nil)
	if err != nil || s.Total.NetCost != nil {
		t.Errorf("expected base-only summary, got %+v, %v", s.Total, err)
	}
}

func TestOwnedLevelsLeftOutOfTotals(t *testing.T) {
	p := testPlanner(t)
	req := refiningRequest()
	req.Owned = []models.Requirement{{Type: models.RequirementBuilding, ID: 5, Level: 1}}
	pl, err := p.Build(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	if pl.Root.Len() != 6 {
		t.Errorf("owned levels stay in the tree, got %d nodes", pl.Root.Len())
	}
	// Research Station 1 costs 300 parsteel
	if got := pl.Base.Total.BaseCost.Get(parsteel); got != 1550 {
		t.Errorf("base parsteel = %d, want 1550", got)
	}

	s, err := p.Recalculate(pl, p.Inputs(pl))
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Total.NetCost.Get(parsteel); got != 1550 {
		t.Errorf("net parsteel = %d, want 1550", got)
	}

	higher := Request{Owned: []models.Requirement{{Type: models.RequirementBuilding, ID: 5, Level: 2}}}
	if !higher.Owns(models.Requirement{Type: models.RequirementBuilding, ID: 5, Level: 1}) {
		t.Error("owning level 2 implies level 1")
	}
	if higher.Owns(models.Requirement{Type: models.RequirementResearch, ID: 5, Level: 1}) {
		t.Error("ownership is per entity type")
	}
}

// drydockBuffs serves one research cost buff per drydock
type drydockBuffs struct{}

func (drydockBuffs) Buffs(_ context.Context, system string, modifier models.ModifierCode) ([]*models.Buff, error) {
	if system != efficiency.SystemStarbase || modifier != models.ResearchCost {
		return nil, nil
	}
	dock := func(buffID, moduleID int64, code string) *models.Buff {
		return &models.Buff{
			ID:           buffID,
			Modifier:     models.ResearchCost,
			Op:           models.OpMultiplyAdd,
			SourceID:     moduleID,
			Conditions:   []models.ConditionCode{models.CondSelfModuleID},
			RankedValues: []float64{0.5},
			Attributes:   models.BuffAttributes{ModuleID: &moduleID},
			Source:       models.BuffSource{ID: moduleID, Code: code},
		}
	}
	return []*models.Buff{dock(901, 17, "DRYDOCK_A"), dock(902, 18, "DRYDOCK_B")}, nil
}

func (drydockBuffs) SyndicateBuffIDs(context.Context) ([]int64, error) { return nil, nil }

func TestDrydockSelection(t *testing.T) {
	engine := efficiency.New(drydockBuffs{},
		efficiency.ForRequirements(models.AllRequirementTypes()),
		efficiency.WithSystems([]string{efficiency.SystemStarbase}),
		efficiency.WithLogger(log.New(io.Discard, "", 0)),
	)
	if err := engine.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	src := loader.NewSource(loader.Dir("../../data"))
	p := New(repository.NewRequirements(src, 0), engine)

	pl, err := p.Build(context.Background(), refiningRequest())
	if err != nil {
		t.Fatal(err)
	}
	researchNet := func(inputs []efficiency.Input) int64 {
		t.Helper()
		s, err := p.Recalculate(pl, inputs)
		if err != nil {
			t.Fatal(err)
		}
		return s.ByType[models.RequirementResearch].NetCost.Get(parsteel)
	}

	if pl.Drydock != efficiency.DefaultDrydock {
		t.Errorf("drydock = %d, want the default", pl.Drydock)
	}
	inputs := p.Inputs(pl)
	if len(inputs) != 1 || inputs[0].Ref.ID != 901 {
		t.Fatalf("inputs = %+v, want only the default drydock's buff", inputs)
	}
	if !inputs[0].Conditional || !inputs[0].Drydock || !inputs[0].Active {
		t.Errorf("default drydock input = %+v", inputs[0])
	}

	// 50, 80 and 120 parsteel at 50%: 33 + 53 + 80
	inputs[0].Select(1)
	if got := researchNet(inputs); got != 166 {
		t.Errorf("docked research net = %d, want 166", got)
	}
	inputs[0].Active = false
	if got := researchNet(inputs); got != 250 {
		t.Errorf("undocked research net = %d, want 250", got)
	}

	if err := p.SelectDrydock(pl, 18); err != nil {
		t.Fatal(err)
	}
	inputs = p.Inputs(pl)
	if len(inputs) != 1 || inputs[0].Ref.ID != 902 || !inputs[0].Active {
		t.Fatalf("inputs after switching drydock = %+v", inputs)
	}
	inputs[0].Select(1)
	if got := researchNet(inputs); got != 166 {
		t.Errorf("research net at drydock 18 = %d, want 166", got)
	}
}
