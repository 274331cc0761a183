package battle

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/questlab/engagehub/internal/domain"
	"github.com/questlab/engagehub/internal/ledger"
	"github.com/questlab/engagehub/internal/notify"
)

type feed struct {
	entries []domain.NotificationInput
}

func (f *feed) publish(ev domain.Event) domain.Notification {
	in := notify.Synthesize(ev)
	f.entries = append(f.entries, in)
	return domain.Notification{Type: in.Type, Title: in.Title, Message: in.Message, Priority: in.Priority, Data: in.Data}
}

func (f *feed) last() domain.NotificationInput {
	return f.entries[len(f.entries)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(balances map[string]int64) (*Service, *ledger.Ledger, *feed) {
	l := ledger.New(nil, testLogger())
	users := make([]domain.User, 0, len(balances))
	for id, b := range balances {
		users = append(users, domain.User{ID: id, Name: id, Balance: b, Level: 1})
	}
	l.Replace(users)

	f := &feed{}
	svc := NewService(l, f.publish, nil, testLogger())
	return svc, l, f
}

func TestCreateInvitationInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	svc, l, f := newFixture(map[string]int64{"alice": 100, "bob": 500})

	inv, err := svc.CreateInvitation(ctx, "alice", "bob", 150)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv != nil {
		t.Fatal("no invitation should be created on insufficient funds")
	}
	if len(f.entries) != 1 || f.last().Type != domain.NotificationError {
		t.Fatalf("expected one error notification, got %v", f.entries)
	}
	if b, _ := l.Balance("alice"); b != 100 {
		t.Errorf("balance changed on failed precondition: %d", b)
	}
}

func TestCreateInvitationSuccess(t *testing.T) {
	ctx := context.Background()
	svc, _, f := newFixture(map[string]int64{"alice": 500, "bob": 500})

	inv, err := svc.CreateInvitation(ctx, "alice", "bob", 150)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv == nil {
		t.Fatal("expected an invitation")
	}
	if inv.Status != domain.InvitationPending {
		t.Errorf("status = %s, want pending", inv.Status)
	}
	if got := inv.ExpiresAt.Sub(inv.CreatedAt); got != domain.InvitationTTL {
		t.Errorf("expiry window = %v, want %v", got, domain.InvitationTTL)
	}
	if f.last().Type != domain.NotificationChallenge {
		t.Errorf("expected a challenge notification toward the opponent, got %s", f.last().Type)
	}
}

func TestAcceptInvitationStartsBattle(t *testing.T) {
	ctx := context.Background()
	svc, _, f := newFixture(map[string]int64{"alice": 500, "bob": 500})

	inv, _ := svc.CreateInvitation(ctx, "alice", "bob", 150)
	b, err := svc.AcceptInvitation(ctx, inv.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if b == nil {
		t.Fatal("expected a battle")
	}
	if b.Status != domain.BattleActive || b.Stake != 150 {
		t.Errorf("battle = %+v, want active with stake 150", b)
	}

	got, _ := svc.Invitation(inv.ID)
	if got.Status != domain.InvitationAccepted {
		t.Errorf("invitation status = %s, want accepted", got.Status)
	}
	if f.last().Type != domain.NotificationBattle {
		t.Errorf("expected battle notification toward the challenger, got %s", f.last().Type)
	}
}

func TestAcceptRevalidatesBalances(t *testing.T) {
	ctx := context.Background()
	svc, l, f := newFixture(map[string]int64{"alice": 500, "bob": 500})

	inv, _ := svc.CreateInvitation(ctx, "alice", "bob", 150)

	// Challenger spends down between creation and acceptance.
	l.Debit(ctx, "alice", 450)

	b, err := svc.AcceptInvitation(ctx, inv.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if b != nil {
		t.Fatal("battle must not start when a balance no longer covers the stake")
	}

	got, _ := svc.Invitation(inv.ID)
	if got.Status != domain.InvitationDeclined {
		t.Errorf("invitation status = %s, want declined", got.Status)
	}
	if f.last().Title != "Challenge declined" {
		t.Errorf("expected an explanatory decline notification, got %q", f.last().Title)
	}
}

func TestDeclineInvitation(t *testing.T) {
	ctx := context.Background()
	svc, l, f := newFixture(map[string]int64{"alice": 500, "bob": 500})

	inv, _ := svc.CreateInvitation(ctx, "alice", "bob", 150)
	if err := svc.DeclineInvitation(ctx, inv.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}

	got, _ := svc.Invitation(inv.ID)
	if got.Status != domain.InvitationDeclined {
		t.Errorf("status = %s, want declined", got.Status)
	}
	if b, _ := l.Balance("alice"); b != 500 {
		t.Errorf("decline must not touch the ledger, balance = %d", b)
	}

	// Terminal: declining again is a no-op and pushes nothing.
	before := len(f.entries)
	if err := svc.DeclineInvitation(ctx, inv.ID); err != nil {
		t.Fatalf("second decline: %v", err)
	}
	if len(f.entries) != before {
		t.Error("decline of a non-pending invitation must be silent")
	}
}

func TestCompleteBattleSettlement(t *testing.T) {
	ctx := context.Background()
	svc, l, f := newFixture(map[string]int64{"alice": 500, "bob": 500})

	inv, _ := svc.CreateInvitation(ctx, "alice", "bob", 150)
	b, _ := svc.AcceptInvitation(ctx, inv.ID)

	if err := svc.CompleteBattle(ctx, b.ID, "alice", "alice"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if got, _ := l.Balance("alice"); got != 650 {
		t.Errorf("winner balance = %d, want 650", got)
	}
	if got, _ := l.Balance("bob"); got != 350 {
		t.Errorf("loser balance = %d, want 350", got)
	}

	done, _ := svc.Battle(b.ID)
	if done.Status != domain.BattleCompleted || done.WinnerID != "alice" || done.LoserID != "bob" {
		t.Errorf("battle = %+v", done)
	}
	if done.CompletedAt == nil {
		t.Error("completedAt not stamped")
	}
	if f.last().Title != "Victory!" {
		t.Errorf("caller is the winner, expected a victory notification, got %q", f.last().Title)
	}
}

func TestCompleteBattleLoserDebitClampsAtZero(t *testing.T) {
	ctx := context.Background()
	svc, l, f := newFixture(map[string]int64{"alice": 500, "bob": 500})

	inv, _ := svc.CreateInvitation(ctx, "alice", "bob", 400)
	b, _ := svc.AcceptInvitation(ctx, inv.ID)

	// Bob's balance drops below the stake between accept and completion.
	l.Debit(ctx, "bob", 450)

	if err := svc.CompleteBattle(ctx, b.ID, "alice", "bob"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got, _ := l.Balance("bob"); got != 0 {
		t.Errorf("loser balance = %d, want 0 (clamped)", got)
	}
	if got, _ := l.Balance("alice"); got != 900 {
		t.Errorf("winner balance = %d, want 900", got)
	}
	if f.last().Title != "Defeat" {
		t.Errorf("caller is the loser, expected a defeat notification, got %q", f.last().Title)
	}
}

func TestCompleteBattleObserverNotification(t *testing.T) {
	ctx := context.Background()
	svc, _, f := newFixture(map[string]int64{"alice": 500, "bob": 500})

	inv, _ := svc.CreateInvitation(ctx, "alice", "bob", 100)
	b, _ := svc.AcceptInvitation(ctx, inv.ID)

	if err := svc.CompleteBattle(ctx, b.ID, "bob", "carol"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if f.last().Title != "Battle finished" {
		t.Errorf("third-party caller, expected observer notification, got %q", f.last().Title)
	}
}

func TestUnknownIDsAreSilentNoOps(t *testing.T) {
	ctx := context.Background()
	svc, _, f := newFixture(map[string]int64{"alice": 500})

	if _, err := svc.AcceptInvitation(ctx, "ghost"); err != nil {
		t.Errorf("accept unknown: %v", err)
	}
	if err := svc.DeclineInvitation(ctx, "ghost"); err != nil {
		t.Errorf("decline unknown: %v", err)
	}
	if err := svc.CompleteBattle(ctx, "ghost", "alice", "alice"); err != nil {
		t.Errorf("complete unknown: %v", err)
	}
	if len(f.entries) != 0 {
		t.Errorf("no-ops must push no notifications, got %d", len(f.entries))
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newFixture(map[string]int64{"alice": 500, "bob": 500})

	inv, _ := svc.CreateInvitation(ctx, "alice", "bob", 100)
	svc.AcceptInvitation(ctx, inv.ID)

	st := svc.Snapshot()
	if len(st.Invitations) != 1 || len(st.Battles) != 1 {
		t.Fatalf("snapshot = %d invitations, %d battles", len(st.Invitations), len(st.Battles))
	}

	restored, _, _ := newFixture(map[string]int64{"alice": 500, "bob": 500})
	restored.Restore(st)
	if got, err := restored.Invitation(inv.ID); err != nil || got.Status != domain.InvitationAccepted {
		t.Errorf("restored invitation = %+v, %v", got, err)
	}
}
