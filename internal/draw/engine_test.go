package draw

import (
	"context"
	"errors"
	"testing"

	"github.com/mmynk/secretsanta/internal/groups"
	"github.com/mmynk/secretsanta/internal/models"
	"github.com/mmynk/secretsanta/internal/storage"
	"github.com/mmynk/secretsanta/internal/storage/sqlite"
)

type outcomes []string

func (o *outcomes) Draw(outcome string) { *o = append(*o, outcome) }

// racingStore commits a competing draw right before the first batch it sees.
type racingStore struct {
	storage.Store
	groupID string
	raced   bool
}

func (s *racingStore) Commit(ctx context.Context, b *storage.Batch) error {
	if !s.raced {
		s.raced = true
		bump := storage.NewBatch().Update(storage.GroupPath(s.groupID), storage.Increment("drawVersion", 1))
		if err := s.Store.Commit(ctx, bump); err != nil {
			return err
		}
	}
	return s.Store.Commit(ctx, b)
}

func setupEngine(t *testing.T) (storage.Store, *groups.Service, *models.Group) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	groupSvc := groups.NewService(store)
	group, err := groupSvc.Create(context.Background(), "A", "Office", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return store, groupSvc, group
}

func active(id, name string) Participant {
	return Participant{
		Member:      models.Member{UserID: id, Role: models.RoleMember, Status: models.StatusActive},
		DisplayName: name,
	}
}

func assignmentsIn(t *testing.T, store storage.Store, groupID string) map[string]models.GroupAssignment {
	t.Helper()
	snaps, err := store.Query(context.Background(), storage.Query{
		Parent:     storage.GroupPath(groupID),
		Collection: storage.Assignments,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	out := map[string]models.GroupAssignment{}
	for _, s := range snaps {
		var a models.GroupAssignment
		if err := s.Decode(&a); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		out[s.Path.ID()] = a
	}
	return out
}

func TestRunScripted(t *testing.T) {
	store, groupSvc, group := setupEngine(t)
	ctx := context.Background()

	var seen outcomes
	engine := NewEngine(store, groupSvc, StrategyCycle).
		WithSource(&scripted{values: []int{2, 0}}).
		WithObserver(&seen)

	participants := []Participant{active("A", "Ann"), active("B", "Ben"), active("C", "")}
	result, err := engine.Run(ctx, group.ID, participants)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(result))
	}

	want := map[string]struct{ receiver, name string }{
		"B": {"A", "Ann"},
		"A": {"C", models.UnknownReceiver},
		"C": {"B", "Ben"},
	}
	stored := assignmentsIn(t, store, group.ID)
	for giver, w := range want {
		a, err := engine.MyAssignment(ctx, group.ID, giver)
		if err != nil {
			t.Fatalf("MyAssignment failed: %v", err)
		}
		if a == nil || a.ReceiverID != w.receiver || a.ReceiverName != w.name || a.GiverID != giver || a.GroupID != group.ID {
			t.Errorf("%s: got %+v, want receiver %s (%s)", giver, a, w.receiver, w.name)
		}
		if stored[giver].ReceiverID != w.receiver {
			t.Errorf("stored %s: got %+v", giver, stored[giver])
		}
	}

	g, err := groupSvc.Get(ctx, group.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if g.DrawStatus != models.DrawCompleted || g.DrawVersion != 1 || g.DrawnAt == 0 {
		t.Errorf("unexpected draw state: %+v", g)
	}
	if len(seen) != 1 || seen[0] != OutcomeCompleted {
		t.Errorf("outcomes: got %v", seen)
	}
}

func TestRunInsufficientMembers(t *testing.T) {
	store, groupSvc, group := setupEngine(t)
	ctx := context.Background()

	var seen outcomes
	engine := NewEngine(store, groupSvc, StrategyCycle).WithObserver(&seen)

	invited := Participant{Member: models.Member{UserID: "B", Status: models.StatusInvited}}
	cases := map[string][]Participant{
		"none":       nil,
		"one":        {active("A", "Ann")},
		"one active": {active("A", "Ann"), invited},
		"duplicate":  {active("A", "Ann"), active("A", "Ann")},
	}
	for name, participants := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := engine.Run(ctx, group.ID, participants)
			if !errors.Is(err, models.ErrInsufficientMembers) {
				t.Errorf("expected ErrInsufficientMembers, got %v", err)
			}
		})
	}

	if n := len(assignmentsIn(t, store, group.ID)); n != 0 {
		t.Errorf("expected no assignments, got %d", n)
	}
	g, _ := groupSvc.Get(ctx, group.ID)
	if g.DrawStatus != "" || g.DrawVersion != 0 {
		t.Errorf("group should be untouched, got %+v", g)
	}
	for _, o := range seen {
		if o != OutcomeInsufficient {
			t.Errorf("unexpected outcome %s", o)
		}
	}
}

func TestRedrawReplacesAssignments(t *testing.T) {
	store, groupSvc, group := setupEngine(t)
	ctx := context.Background()
	engine := NewEngine(store, groupSvc, StrategyUniform)

	if _, err := engine.Run(ctx, group.ID, []Participant{active("A", "Ann"), active("B", "Ben"), active("C", "Cat")}); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if _, err := engine.Run(ctx, group.ID, []Participant{active("A", "Ann"), active("B", "Ben")}); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	stored := assignmentsIn(t, store, group.ID)
	if len(stored) != 2 {
		t.Fatalf("expected 2 assignments after redraw, got %v", stored)
	}
	if stored["A"].ReceiverID != "B" || stored["B"].ReceiverID != "A" {
		t.Errorf("unexpected pairs: %+v", stored)
	}

	a, err := engine.MyAssignment(ctx, group.ID, "C")
	if err != nil {
		t.Fatalf("MyAssignment failed: %v", err)
	}
	if a != nil {
		t.Errorf("stale assignment for C: %+v", a)
	}

	g, _ := groupSvc.Get(ctx, group.ID)
	if g.DrawVersion != 2 {
		t.Errorf("drawVersion: expected 2, got %d", g.DrawVersion)
	}
}

func TestRunConflict(t *testing.T) {
	store, groupSvc, group := setupEngine(t)
	ctx := context.Background()

	racing := &racingStore{Store: store, groupID: group.ID}
	var seen outcomes
	engine := NewEngine(racing, groupSvc, StrategyCycle).WithObserver(&seen)

	_, err := engine.Run(ctx, group.ID, []Participant{active("A", "Ann"), active("B", "Ben")})
	if !errors.Is(err, models.ErrDrawConflict) {
		t.Fatalf("expected ErrDrawConflict, got %v", err)
	}
	if n := len(assignmentsIn(t, store, group.ID)); n != 0 {
		t.Errorf("conflicting draw wrote %d assignments", n)
	}
	if len(seen) != 1 || seen[0] != OutcomeConflict {
		t.Errorf("outcomes: got %v", seen)
	}

	// A retry reads the new version and succeeds.
	if _, err := engine.Run(ctx, group.ID, []Participant{active("A", "Ann"), active("B", "Ben")}); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestRunDeletedGroup(t *testing.T) {
	store, groupSvc, group := setupEngine(t)
	ctx := context.Background()

	if err := groupSvc.SoftDelete(ctx, "A", group.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	engine := NewEngine(store, groupSvc, StrategyCycle)
	_, err := engine.Run(ctx, group.ID, []Participant{active("A", "Ann"), active("B", "Ben")})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMyAssignmentBeforeDraw(t *testing.T) {
	store, groupSvc, group := setupEngine(t)
	engine := NewEngine(store, groupSvc, StrategyCycle)

	a, err := engine.MyAssignment(context.Background(), group.ID, "A")
	if err != nil {
		t.Fatalf("MyAssignment failed: %v", err)
	}
	if a != nil {
		t.Errorf("expected no assignment, got %+v", a)
	}
}
