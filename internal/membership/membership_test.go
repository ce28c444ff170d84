package membership

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/mmynk/secretsanta/internal/groups"
	"github.com/mmynk/secretsanta/internal/models"
	"github.com/mmynk/secretsanta/internal/storage"
	"github.com/mmynk/secretsanta/internal/storage/sqlite"
)

type countingObserver map[string]int

func (c countingObserver) Transition(name string) { c[name]++ }

// hookedStore runs beforeCommit, when set, ahead of every Commit.
type hookedStore struct {
	storage.Store
	beforeCommit func(ctx context.Context, inner storage.Store) error
}

func (s *hookedStore) Commit(ctx context.Context, b *storage.Batch) error {
	if s.beforeCommit != nil {
		if err := s.beforeCommit(ctx, s.Store); err != nil {
			return err
		}
	}
	return s.Store.Commit(ctx, b)
}

type fixture struct {
	store    *hookedStore
	groups   *groups.Service
	members  *Service
	observer countingObserver
	group    *models.Group
}

// setup creates a store with one open group administered by "admin".
func setup(t *testing.T, policy Policy) *fixture {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := &hookedStore{Store: db}

	groupSvc := groups.NewService(store)
	obs := countingObserver{}
	f := &fixture{
		store:    store,
		groups:   groupSvc,
		members:  NewService(store, groupSvc, policy).WithObserver(obs),
		observer: obs,
	}
	f.group, err = groupSvc.Create(context.Background(), "admin", "Office", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return f
}

func (f *fixture) memberIDs(t *testing.T) []string {
	t.Helper()
	g, err := f.groups.Get(context.Background(), f.group.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return g.MemberIDs
}

func TestInviteAndAccept(t *testing.T) {
	f := setup(t, Policy{})
	ctx := context.Background()
	gid := f.group.ID

	member, err := f.members.Invite(ctx, "admin", gid, "bob")
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if member.Status != models.StatusInvited || member.Role != models.RoleMember {
		t.Errorf("unexpected member: %+v", member)
	}
	if slices.Contains(f.memberIDs(t), "bob") {
		t.Error("invited user must not be in memberIds")
	}

	if _, err := f.members.Approve(ctx, "admin", gid, "bob"); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("admin accepting an invite: expected ErrForbidden, got %v", err)
	}

	approved, err := f.members.Approve(ctx, "bob", gid, "bob")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != models.StatusActive {
		t.Errorf("expected active, got %s", approved.Status)
	}
	if !slices.Contains(f.memberIDs(t), "bob") {
		t.Error("active user must be in memberIds")
	}

	if _, err := f.members.Approve(ctx, "bob", gid, "bob"); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("approving an active member: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.members.Invite(ctx, "admin", gid, "bob"); !errors.Is(err, models.ErrAlreadyMember) {
		t.Errorf("re-inviting: expected ErrAlreadyMember, got %v", err)
	}

	if f.observer["invite"] != 1 || f.observer["approve"] != 1 {
		t.Errorf("unexpected transitions: %v", f.observer)
	}
}

func TestInviteRequiresAdmin(t *testing.T) {
	f := setup(t, Policy{})
	ctx := context.Background()

	if _, err := f.members.Invite(ctx, "stranger", f.group.ID, "bob"); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.members.Invite(ctx, "admin", f.group.ID, ""); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := f.members.Invite(ctx, "admin", "missing", "bob"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRequestJoin(t *testing.T) {
	f := setup(t, Policy{})
	ctx := context.Background()
	gid := f.group.ID

	member, err := f.members.RequestJoin(ctx, "carol", gid)
	if err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}
	if member.Status != models.StatusRequesting {
		t.Errorf("expected requesting, got %s", member.Status)
	}

	if _, err := f.members.Approve(ctx, "carol", gid, "carol"); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("self-approving a request: expected ErrForbidden, got %v", err)
	}
	if _, err := f.members.Approve(ctx, "admin", gid, "carol"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if !slices.Contains(f.memberIDs(t), "carol") {
		t.Error("approved user must be in memberIds")
	}

	if _, err := f.members.RequestJoin(ctx, "carol", gid); !errors.Is(err, models.ErrAlreadyMember) {
		t.Errorf("duplicate request: expected ErrAlreadyMember, got %v", err)
	}
}

func TestClosedGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("default policy", func(t *testing.T) {
		f := setup(t, Policy{})
		if _, err := f.groups.SetOpen(ctx, "admin", f.group.ID, false); err != nil {
			t.Fatalf("SetOpen failed: %v", err)
		}
		if _, err := f.members.RequestJoin(ctx, "carol", f.group.ID); !errors.Is(err, models.ErrGroupClosed) {
			t.Errorf("RequestJoin: expected ErrGroupClosed, got %v", err)
		}
		if _, err := f.members.Invite(ctx, "admin", f.group.ID, "bob"); !errors.Is(err, models.ErrGroupClosed) {
			t.Errorf("Invite: expected ErrGroupClosed, got %v", err)
		}
	})

	t.Run("closed invites allowed", func(t *testing.T) {
		f := setup(t, Policy{AllowClosedInvites: true})
		if _, err := f.groups.SetOpen(ctx, "admin", f.group.ID, false); err != nil {
			t.Fatalf("SetOpen failed: %v", err)
		}
		if _, err := f.members.Invite(ctx, "admin", f.group.ID, "bob"); err != nil {
			t.Errorf("Invite failed: %v", err)
		}
		if _, err := f.members.RequestJoin(ctx, "carol", f.group.ID); !errors.Is(err, models.ErrGroupClosed) {
			t.Errorf("RequestJoin: expected ErrGroupClosed, got %v", err)
		}
	})
}

func TestRemove(t *testing.T) {
	f := setup(t, Policy{})
	ctx := context.Background()
	gid := f.group.ID

	for _, u := range []string{"bob", "carol"} {
		if _, err := f.members.Invite(ctx, "admin", gid, u); err != nil {
			t.Fatalf("Invite failed: %v", err)
		}
		if _, err := f.members.Approve(ctx, u, gid, u); err != nil {
			t.Fatalf("Approve failed: %v", err)
		}
	}

	if err := f.members.Remove(ctx, "bob", gid, "carol"); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("member removing another: expected ErrForbidden, got %v", err)
	}

	// leaving
	if err := f.members.Remove(ctx, "bob", gid, "bob"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	// admin removal
	if err := f.members.Remove(ctx, "admin", gid, "carol"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	ids := f.memberIDs(t)
	if len(ids) != 1 || ids[0] != "admin" {
		t.Errorf("memberIds: expected [admin], got %v", ids)
	}
	if _, err := f.groups.Member(ctx, gid, "bob"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("removed member document should be gone, got %v", err)
	}
	if err := f.members.Remove(ctx, "admin", gid, "bob"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("removing a non-member: expected ErrNotFound, got %v", err)
	}

	// declining an invitation
	if _, err := f.members.Invite(ctx, "admin", gid, "dave"); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if err := f.members.Remove(ctx, "dave", gid, "dave"); err != nil {
		t.Fatalf("decline failed: %v", err)
	}
	if f.observer["remove"] != 3 {
		t.Errorf("expected 3 removals, got %d", f.observer["remove"])
	}
}

func TestDeletedGroupRejectsTransitions(t *testing.T) {
	f := setup(t, Policy{})
	ctx := context.Background()
	gid := f.group.ID

	if _, err := f.members.Invite(ctx, "admin", gid, "bob"); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if err := f.groups.SoftDelete(ctx, "admin", gid); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	if _, err := f.members.Approve(ctx, "bob", gid, "bob"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Approve: expected ErrNotFound, got %v", err)
	}
	if _, err := f.members.RequestJoin(ctx, "carol", gid); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("RequestJoin: expected ErrNotFound, got %v", err)
	}
}

func TestRejectsIDsWithSlash(t *testing.T) {
	f := setup(t, Policy{})
	ctx := context.Background()
	gid := f.group.ID

	if _, err := f.members.Invite(ctx, "admin", gid, "x/y"); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Invite: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := f.members.RequestJoin(ctx, "x/y", gid); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("RequestJoin: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := f.members.Approve(ctx, "admin", gid, "x/y"); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Approve: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := f.members.Invite(ctx, "admin", gid+"/members/admin", "bob"); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Invite into nested path: expected ErrInvalidArgument, got %v", err)
	}
}

func TestTransientCommitFailure(t *testing.T) {
	serialization := func(context.Context, storage.Store) error {
		return storage.Unavailable("commit transaction", errors.New("SQLSTATE 40001"))
	}

	t.Run("request join", func(t *testing.T) {
		f := setup(t, Policy{})
		f.store.beforeCommit = serialization

		_, err := f.members.RequestJoin(context.Background(), "carol", f.group.ID)
		if !errors.Is(err, storage.ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
		if errors.Is(err, storage.ErrNotFound) {
			t.Errorf("transient failure reported as deleted group: %v", err)
		}
	})

	t.Run("approve", func(t *testing.T) {
		f := setup(t, Policy{})
		ctx := context.Background()
		if _, err := f.members.Invite(ctx, "admin", f.group.ID, "bob"); err != nil {
			t.Fatalf("Invite failed: %v", err)
		}
		f.store.beforeCommit = serialization

		_, err := f.members.Approve(ctx, "bob", f.group.ID, "bob")
		if !errors.Is(err, storage.ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
		if errors.Is(err, models.ErrInvalidTransition) {
			t.Errorf("transient failure reported as invalid transition: %v", err)
		}
	})
}

func TestApproveGroupWriteFailure(t *testing.T) {
	tests := []struct {
		name   string
		status models.MemberStatus
		prep   func(f *fixture) error
		actor  string
	}{
		{
			name:   "invited",
			status: models.StatusInvited,
			prep: func(f *fixture) error {
				_, err := f.members.Invite(context.Background(), "admin", f.group.ID, "bob")
				return err
			},
			actor: "bob",
		},
		{
			name:   "requesting",
			status: models.StatusRequesting,
			prep: func(f *fixture) error {
				_, err := f.members.RequestJoin(context.Background(), "bob", f.group.ID)
				return err
			},
			actor: "admin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, Policy{})
			ctx := context.Background()
			gid := f.group.ID
			if err := tt.prep(f); err != nil {
				t.Fatalf("setup transition failed: %v", err)
			}

			// memberIds stops being an array, so the group half of the
			// approve batch cannot apply.
			f.store.beforeCommit = func(ctx context.Context, inner storage.Store) error {
				return inner.Commit(ctx, storage.NewBatch().
					Update(storage.GroupPath(gid), storage.SetField("memberIds", "corrupt")))
			}

			if _, err := f.members.Approve(ctx, tt.actor, gid, "bob"); err == nil {
				t.Fatal("expected Approve to fail")
			}
			f.store.beforeCommit = nil

			member, err := f.groups.Member(ctx, gid, "bob")
			if err != nil {
				t.Fatalf("Member failed: %v", err)
			}
			if member.Status != tt.status {
				t.Errorf("expected status %s after failed approve, got %s", tt.status, member.Status)
			}
			if f.observer["approve"] != 0 {
				t.Errorf("approve observed %d times", f.observer["approve"])
			}
		})
	}
}

func TestGetPendingInvitesForUser(t *testing.T) {
	f := setup(t, Policy{})
	ctx := context.Background()

	other, err := f.groups.Create(ctx, "admin", "Family", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	third, err := f.groups.Create(ctx, "admin", "Gym", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, gid := range []string{f.group.ID, other.ID, third.ID} {
		if _, err := f.members.Invite(ctx, "admin", gid, "bob"); err != nil {
			t.Fatalf("Invite failed: %v", err)
		}
	}
	if _, err := f.members.Approve(ctx, "bob", third.ID, "bob"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if err := f.groups.SoftDelete(ctx, "admin", other.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	invites, err := f.members.GetPendingInvitesForUser(ctx, "bob")
	if err != nil {
		t.Fatalf("GetPendingInvitesForUser failed: %v", err)
	}
	if len(invites) != 1 {
		t.Fatalf("expected 1 invite, got %d", len(invites))
	}
	if invites[0].Group.ID != f.group.ID || invites[0].Group.Name != "Office" {
		t.Errorf("unexpected group: %+v", invites[0].Group)
	}
	if invites[0].Member.Status != models.StatusInvited {
		t.Errorf("unexpected member: %+v", invites[0].Member)
	}
}

func TestGetGroupMembers(t *testing.T) {
	f := setup(t, Policy{})
	ctx := context.Background()
	gid := f.group.ID

	if _, err := f.members.Invite(ctx, "admin", gid, "bob"); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if _, err := f.members.RequestJoin(ctx, "carol", gid); err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}

	members, err := f.members.GetGroupMembers(ctx, gid)
	if err != nil {
		t.Fatalf("GetGroupMembers failed: %v", err)
	}
	statuses := map[string]models.MemberStatus{}
	for _, m := range members {
		statuses[m.UserID] = m.Status
	}
	want := map[string]models.MemberStatus{
		"admin": models.StatusActive,
		"bob":   models.StatusInvited,
		"carol": models.StatusRequesting,
	}
	if len(statuses) != len(want) {
		t.Fatalf("expected %d members, got %v", len(want), statuses)
	}
	for u, s := range want {
		if statuses[u] != s {
			t.Errorf("%s: expected %s, got %s", u, s, statuses[u])
		}
	}
}

func TestWishlist(t *testing.T) {
	f := setup(t, Policy{})
	ctx := context.Background()
	gid := f.group.ID

	item, err := f.members.AddWishlistItem(ctx, "admin", gid, "admin", " Book ", "https://example.com/book")
	if err != nil {
		t.Fatalf("AddWishlistItem failed: %v", err)
	}
	if item.ID == "" || item.Name != "Book" {
		t.Errorf("unexpected item: %+v", item)
	}
	if _, err := f.members.AddWishlistItem(ctx, "admin", gid, "admin", "Socks", ""); err != nil {
		t.Fatalf("AddWishlistItem failed: %v", err)
	}

	if _, err := f.members.AddWishlistItem(ctx, "bob", gid, "admin", "Coal", ""); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("editing another's wishlist: expected ErrForbidden, got %v", err)
	}
	if _, err := f.members.AddWishlistItem(ctx, "admin", gid, "admin", "  ", ""); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("empty name: expected ErrInvalidArgument, got %v", err)
	}

	if err := f.members.RemoveWishlistItem(ctx, "admin", gid, "admin", item.ID); err != nil {
		t.Fatalf("RemoveWishlistItem failed: %v", err)
	}
	if err := f.members.RemoveWishlistItem(ctx, "admin", gid, "admin", "unknown"); err != nil {
		t.Errorf("removing unknown item should be a no-op, got %v", err)
	}

	member, err := f.groups.Member(ctx, gid, "admin")
	if err != nil {
		t.Fatalf("Member failed: %v", err)
	}
	if len(member.Wishlist) != 1 || member.Wishlist[0].Name != "Socks" {
		t.Errorf("unexpected wishlist: %+v", member.Wishlist)
	}
}
