package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/questlab/engagehub/internal/battle"
	"github.com/questlab/engagehub/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEngine implements the handler service interfaces with canned data and
// call recording.
type fakeEngine struct {
	feed       []domain.Notification
	markedRead []string
	cleared    bool

	submitted map[string]int
	seeded    map[string]bool

	users map[string]domain.User

	invitation *domain.BattleInvitation
	createErr  error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		submitted: make(map[string]int),
		seeded:    make(map[string]bool),
		users:     make(map[string]domain.User),
	}
}

func (f *fakeEngine) Notifications() []domain.Notification { return f.feed }

func (f *fakeEngine) AddNotification(input domain.NotificationInput) domain.Notification {
	n := domain.Notification{
		ID: "n-new", Type: input.Type, Title: input.Title,
		Message: input.Message, Priority: input.Priority, Data: input.Data,
	}
	f.feed = append([]domain.Notification{n}, f.feed...)
	return n
}

func (f *fakeEngine) MarkNotificationRead(id string) { f.markedRead = append(f.markedRead, id) }
func (f *fakeEngine) MarkAllNotificationsRead()      {}
func (f *fakeEngine) RemoveNotification(id string)   {}
func (f *fakeEngine) ClearAllNotifications()         { f.cleared = true }

func (f *fakeEngine) SubmitAchievements(_ context.Context, cur []domain.Achievement, seed bool) {
	f.submitted["achievements"] = len(cur)
	f.seeded["achievements"] = seed
}
func (f *fakeEngine) SubmitTasks(_ context.Context, cur []domain.Task, seed bool) {
	f.submitted["tasks"] = len(cur)
	f.seeded["tasks"] = seed
}
func (f *fakeEngine) SubmitShopItems(_ context.Context, cur []domain.ShopItem, seed bool) {
	f.submitted["shopItems"] = len(cur)
	f.seeded["shopItems"] = seed
}
func (f *fakeEngine) SubmitOrders(_ context.Context, cur []domain.Order, seed bool) {
	f.submitted["orders"] = len(cur)
	f.seeded["orders"] = seed
}
func (f *fakeEngine) SubmitCases(_ context.Context, cur []domain.CaseType, seed bool) {
	f.submitted["cases"] = len(cur)
	f.seeded["cases"] = seed
}
func (f *fakeEngine) SubmitUserCases(_ context.Context, cur []domain.UserCase, seed bool) {
	f.submitted["userCases"] = len(cur)
	f.seeded["userCases"] = seed
}

func (f *fakeEngine) GetUser(userID string) (domain.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeEngine) GetUserBalance(userID string) (int64, error) {
	u, err := f.GetUser(userID)
	if err != nil {
		return 0, err
	}
	return u.Balance, nil
}

func (f *fakeEngine) UpdateUserBalance(_ context.Context, userID string, delta int64) (domain.User, error) {
	u := f.users[userID]
	u.ID = userID
	u.Balance += delta
	if u.Balance < 0 {
		u.Balance = 0
	}
	f.users[userID] = u
	return u, nil
}

func (f *fakeEngine) UpdateUserExperience(_ context.Context, userID string, delta int64) (domain.User, error) {
	u := f.users[userID]
	u.ID = userID
	u.Experience += delta
	f.users[userID] = u
	return u, nil
}

func (f *fakeEngine) CreateBattleInvitation(_ context.Context, challengerID, opponentID string, stake int64) (*domain.BattleInvitation, error) {
	if challengerID == "" || opponentID == "" || stake <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return f.invitation, f.createErr
}

func (f *fakeEngine) AcceptBattleInvitation(_ context.Context, id string) (*domain.Battle, error) {
	return nil, nil
}
func (f *fakeEngine) DeclineBattleInvitation(_ context.Context, id string) error { return nil }
func (f *fakeEngine) CompleteBattle(_ context.Context, id, winnerID, callerID string) error {
	if winnerID == "outsider" {
		return domain.ErrInvalidInput
	}
	return nil
}
func (f *fakeEngine) CancelBattle(_ context.Context, id string) error { return nil }
func (f *fakeEngine) BattleState() battle.State                       { return battle.State{} }

func newTestServer(fake *fakeEngine) *http.ServeMux {
	logger := discardLogger()
	notifications := NewNotificationHandler(fake, logger)
	state := NewStateHandler(fake, logger)
	users := NewUserHandler(fake, logger)
	battles := NewBattleHandler(fake, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/notifications", notifications.ListNotifications)
	mux.HandleFunc("POST /api/notifications", notifications.CreateNotification)
	mux.HandleFunc("PUT /api/notifications/{id}/read", notifications.MarkRead)
	mux.HandleFunc("DELETE /api/notifications", notifications.ClearNotifications)
	mux.HandleFunc("PUT /api/state/{collection}", state.SubmitCollection)
	mux.HandleFunc("GET /api/users/{id}/balance", users.GetBalance)
	mux.HandleFunc("POST /api/users/{id}/balance", users.UpdateBalance)
	mux.HandleFunc("POST /api/battles/invitations", battles.CreateInvitation)
	mux.HandleFunc("POST /api/battles/{id}/complete", battles.Complete)
	return mux
}

func TestListNotificationsReportsUnread(t *testing.T) {
	fake := newFakeEngine()
	fake.feed = []domain.Notification{
		{ID: "n2", Read: false},
		{ID: "n1", Read: true},
	}

	rec := httptest.NewRecorder()
	newTestServer(fake).ServeHTTP(rec, httptest.NewRequest("GET", "/api/notifications", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp listNotificationsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Notifications) != 2 || resp.Unread != 1 {
		t.Errorf("got %d notifications, %d unread; want 2, 1", len(resp.Notifications), resp.Unread)
	}
}

func TestCreateNotificationRequiresTitle(t *testing.T) {
	fake := newFakeEngine()
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"type":"system","message":"no title"}`)
	newTestServer(fake).ServeHTTP(rec, httptest.NewRequest("POST", "/api/notifications", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMarkReadPassesPathID(t *testing.T) {
	fake := newFakeEngine()
	rec := httptest.NewRecorder()
	newTestServer(fake).ServeHTTP(rec, httptest.NewRequest("PUT", "/api/notifications/abc-123/read", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(fake.markedRead) != 1 || fake.markedRead[0] != "abc-123" {
		t.Errorf("markedRead = %v, want [abc-123]", fake.markedRead)
	}
}

func TestSubmitCollectionRoutesByName(t *testing.T) {
	fake := newFakeEngine()
	rec := httptest.NewRecorder()
	body := strings.NewReader(`[{"id":"t1","title":"Ship"},{"id":"t2","title":"Test"}]`)
	newTestServer(fake).ServeHTTP(rec, httptest.NewRequest("PUT", "/api/state/tasks", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if fake.submitted["tasks"] != 2 || fake.seeded["tasks"] {
		t.Errorf("tasks submit = %d seeded=%v, want 2 unseeded", fake.submitted["tasks"], fake.seeded["tasks"])
	}
}

func TestSubmitCollectionSeedFlag(t *testing.T) {
	fake := newFakeEngine()
	rec := httptest.NewRecorder()
	body := strings.NewReader(`[]`)
	newTestServer(fake).ServeHTTP(rec, httptest.NewRequest("PUT", "/api/state/achievements?seed=true", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if !fake.seeded["achievements"] {
		t.Error("seed flag not forwarded")
	}
}

func TestSubmitUnknownCollection(t *testing.T) {
	fake := newFakeEngine()
	rec := httptest.NewRecorder()
	newTestServer(fake).ServeHTTP(rec, httptest.NewRequest("PUT", "/api/state/widgets", strings.NewReader(`[]`)))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetBalanceUnknownUser(t *testing.T) {
	fake := newFakeEngine()
	rec := httptest.NewRecorder()
	newTestServer(fake).ServeHTTP(rec, httptest.NewRequest("GET", "/api/users/ghost/balance", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateBalanceAppliesDelta(t *testing.T) {
	fake := newFakeEngine()
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"delta":250}`)
	newTestServer(fake).ServeHTTP(rec, httptest.NewRequest("POST", "/api/users/u1/balance", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var u domain.User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.Balance != 250 {
		t.Errorf("balance = %d, want 250", u.Balance)
	}
}

func TestCreateInvitationValidation(t *testing.T) {
	fake := newFakeEngine()
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"challengerId":"","opponentId":"bob","stake":100}`)
	newTestServer(fake).ServeHTTP(rec, httptest.NewRequest("POST", "/api/battles/invitations", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateInvitationInsufficientFundsReturnsNull(t *testing.T) {
	// The engine reports a failed balance precondition with a nil invitation
	// and no error; the handler passes the null through.
	fake := newFakeEngine()
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"challengerId":"alice","opponentId":"bob","stake":100}`)
	newTestServer(fake).ServeHTTP(rec, httptest.NewRequest("POST", "/api/battles/invitations", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var resp struct {
		Invitation *domain.BattleInvitation `json:"invitation"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Invitation != nil {
		t.Errorf("invitation = %+v, want null", resp.Invitation)
	}
}

func TestCompleteBattleRejectsOutsideWinner(t *testing.T) {
	fake := newFakeEngine()
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"winnerId":"outsider","callerId":"alice"}`)
	newTestServer(fake).ServeHTTP(rec, httptest.NewRequest("POST", "/api/battles/b1/complete", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
