// Package draw generates and commits Secret Santa assignments.
package draw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/secretsanta/internal/groups"
	"github.com/mmynk/secretsanta/internal/models"
	"github.com/mmynk/secretsanta/internal/storage"
)

// Draw outcomes reported to an Observer.
const (
	OutcomeCompleted    = "completed"
	OutcomeInsufficient = "insufficient_members"
	OutcomeConflict     = "conflict"
	OutcomeFailed       = "failed"
)

// Observer is told the outcome of every draw attempt.
type Observer interface {
	Draw(outcome string)
}

// Participant is a member taking part in a draw, with the display name to
// copy into the assignment that points at them.
type Participant struct {
	Member      models.Member
	DisplayName string
}

// Engine runs draws against a store.
type Engine struct {
	store    storage.Store
	groups   *groups.Service
	strategy Strategy
	src      Source
	observer Observer
	now      func() time.Time
}

// NewEngine creates an Engine using the runtime random source.
func NewEngine(store storage.Store, groupSvc *groups.Service, strategy Strategy) *Engine {
	return &Engine{
		store:    store,
		groups:   groupSvc,
		strategy: strategy,
		src:      runtimeSource{},
		now:      time.Now,
	}
}

// WithSource replaces the random source.
func (e *Engine) WithSource(src Source) *Engine {
	e.src = src
	return e
}

// WithObserver registers o for draw outcomes.
func (e *Engine) WithObserver(o Observer) *Engine {
	e.observer = o
	return e
}

// Run draws the group. participants should be the group's Member documents;
// only active ones are drawn. The assignments, the removal of assignments
// left over from earlier draws and the group's draw status are committed in
// one batch, guarded by the group's drawVersion: if another draw commits
// first, Run fails with models.ErrDrawConflict and writes nothing.
func (e *Engine) Run(ctx context.Context, groupID string, participants []Participant) ([]models.GroupAssignment, error) {
	assignments, err := e.run(ctx, groupID, participants)
	switch {
	case err == nil:
		e.report(OutcomeCompleted)
	case errors.Is(err, models.ErrInsufficientMembers):
		e.report(OutcomeInsufficient)
	case errors.Is(err, models.ErrDrawConflict):
		e.report(OutcomeConflict)
	default:
		e.report(OutcomeFailed)
	}
	return assignments, err
}

func (e *Engine) run(ctx context.Context, groupID string, participants []Participant) ([]models.GroupAssignment, error) {
	if len(participants) < 2 {
		return nil, models.ErrInsufficientMembers
	}

	// Re-check status even if the caller already filtered.
	names := make(map[string]string, len(participants))
	var ids []string
	for _, p := range participants {
		if !p.Member.IsActive() || p.Member.UserID == "" {
			continue
		}
		if _, seen := names[p.Member.UserID]; seen {
			continue
		}
		names[p.Member.UserID] = p.DisplayName
		ids = append(ids, p.Member.UserID)
	}
	if len(ids) < 2 {
		return nil, models.ErrInsufficientMembers
	}

	group, err := e.groups.GetActive(ctx, groupID)
	if err != nil {
		return nil, err
	}

	previous, err := e.store.Query(ctx, storage.Query{
		Parent:     storage.GroupPath(groupID),
		Collection: storage.Assignments,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read previous assignments: %w", err)
	}

	pairs := Assign(ids, e.strategy, e.src)

	groupPath := storage.GroupPath(groupID)
	now := e.now().Unix()
	batch := storage.NewBatch().
		Require(groupPath, "drawVersion", group.DrawVersion).
		Require(groupPath, "status", models.GroupActive)

	assignments := make([]models.GroupAssignment, len(pairs))
	for i, p := range pairs {
		name := names[p.Receiver]
		if name == "" {
			name = models.UnknownReceiver
		}
		assignments[i] = models.GroupAssignment{
			GroupID:      groupID,
			GiverID:      p.Giver,
			ReceiverID:   p.Receiver,
			ReceiverName: name,
		}
		batch.Set(storage.AssignmentPath(groupID, p.Giver), assignments[i])
	}

	for _, snap := range previous {
		if _, drawn := names[snap.Path.ID()]; !drawn {
			batch.Delete(snap.Path)
		}
	}

	batch.Update(groupPath,
		storage.SetField("drawStatus", models.DrawCompleted),
		storage.Increment("drawVersion", 1),
		storage.SetField("drawnAt", now),
		storage.SetField("updatedAt", now),
	)

	if err := e.store.Commit(ctx, batch); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("group %s: %w", groupID, models.ErrDrawConflict)
		}
		return nil, fmt.Errorf("failed to commit draw: %w", err)
	}

	slog.Info("Draw completed",
		"group_id", groupID,
		"participants", len(ids),
		"strategy", string(e.strategy),
		"draw_version", group.DrawVersion+1,
	)
	return assignments, nil
}

// MyAssignment returns the assignment where userID is the giver, or nil
// when the group has not been drawn for them.
func (e *Engine) MyAssignment(ctx context.Context, groupID, userID string) (*models.GroupAssignment, error) {
	var a models.GroupAssignment
	err := e.store.Get(ctx, storage.AssignmentPath(groupID, userID), &a)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

func (e *Engine) report(outcome string) {
	if e.observer != nil {
		e.observer.Draw(outcome)
	}
}
