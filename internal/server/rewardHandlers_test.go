package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ecoretail/internal/database"
	applog "ecoretail/internal/logger"
	"ecoretail/internal/model"
)

// fakeRewardsStore keeps activities and balances in maps with the same
// sentinel errors and conditional-update semantics as the Mongo store.
type fakeRewardsStore struct {
	mu         sync.Mutex
	activities map[string]model.Activity
	rewards    map[string]model.UserReward
}

func newFakeRewardsStore() *fakeRewardsStore {
	return &fakeRewardsStore{
		activities: map[string]model.Activity{},
		rewards:    map[string]model.UserReward{},
	}
}

func (f *fakeRewardsStore) ActivityInsert(ctx context.Context, a model.Activity) (model.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = primitive.NewObjectID()
	f.activities[a.ID.Hex()] = a
	return a, nil
}

func (f *fakeRewardsStore) ActivityFind(ctx context.Context, activityID string) (model.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := primitive.ObjectIDFromHex(activityID); err != nil {
		return model.Activity{}, errors.WithMessagef(mongo.ErrNoDocuments, "invalid Activity ID: %s", activityID)
	}
	a, ok := f.activities[activityID]
	if !ok {
		return a, errors.WithMessagef(mongo.ErrNoDocuments, "no Activity with ID: %s", activityID)
	}
	return a, nil
}

func (f *fakeRewardsStore) ActivitiesFindAll(ctx context.Context) ([]model.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	as := make([]model.Activity, 0, len(f.activities))
	for _, a := range f.activities {
		as = append(as, a)
	}
	return as, nil
}

func (f *fakeRewardsStore) ActivitySetVerification(ctx context.Context, activityID primitive.ObjectID, verified bool, points int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.activities[activityID.Hex()]
	if !ok {
		return errors.WithMessagef(mongo.ErrNoDocuments, "no Activity with ID: %s", activityID.Hex())
	}
	a.Verified = verified
	a.Points = points
	f.activities[activityID.Hex()] = a
	return nil
}

func (f *fakeRewardsStore) RewardFind(ctx context.Context, userID string) (model.UserReward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rewards[userID]
	if !ok {
		return r, errors.WithMessagef(mongo.ErrNoDocuments, "no UserReward for UserID: %s", userID)
	}
	return r, nil
}

func (f *fakeRewardsStore) RewardFindOrCreate(ctx context.Context, userID string) (model.UserReward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rewards[userID]
	if !ok {
		r = model.UserReward{UserID: userID, Badges: []string{}, Discounts: []string{}}
		f.rewards[userID] = r
	}
	return r, nil
}

func (f *fakeRewardsStore) RewardAdjustPoints(ctx context.Context, userID string, delta int) (model.UserReward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rewards[userID]
	if !ok {
		return r, errors.WithMessagef(mongo.ErrNoDocuments, "no UserReward for UserID: %s", userID)
	}
	r.Points += delta
	f.rewards[userID] = r
	return r, nil
}

func (f *fakeRewardsStore) RewardRedeem(ctx context.Context, userID string, debit int, voucher string) (model.UserReward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rewards[userID]
	if !ok || r.Points < debit {
		return r, errors.WithMessagef(database.ErrInsufficientPoints, "UserID: %s", userID)
	}
	r.Points -= debit
	r.Discounts = append(r.Discounts, voucher)
	f.rewards[userID] = r
	return r, nil
}

func newRewardsTestServer(t *testing.T) (Server, *fakeRewardsStore) {
	t.Helper()
	f := newFakeRewardsStore()
	return Server{
		Rewards: f,
		Logger:  applog.NewLogger(applog.LevelOff, io.Discard),
	}, f
}

type rewardResponse struct {
	Success  bool             `json:"success"`
	Activity model.Activity   `json:"activity"`
	User     model.UserReward `json:"user"`
}

func submitActivity(t *testing.T, h http.Handler, userID string, typ model.ActivityType) rewardResponse {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/user-rewards",
		fmt.Sprintf(`{"user_id":%q,"type":%q,"description":"test"}`, userID, typ))
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body: %s", w.Code, w.Body)
	}
	resp := rewardResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error unmarshalling response: %v", err)
	}
	return resp
}

func moderateActivity(t *testing.T, h http.Handler, id string, action string) rewardResponse {
	t.Helper()
	w := doJSON(t, h, http.MethodPut, "/api/user-rewards",
		fmt.Sprintf(`{"id":%q,"action":%q}`, id, action))
	if w.Code != http.StatusOK {
		t.Fatalf("moderate status = %d, body: %s", w.Code, w.Body)
	}
	resp := rewardResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error unmarshalling response: %v", err)
	}
	return resp
}

func TestActivitySubmitAutoVerify(t *testing.T) {
	s, _ := newRewardsTestServer(t)
	r := s.Router()

	resp := submitActivity(t, r, "u1", model.ActivityPackaging)
	if !resp.Activity.Verified {
		t.Error("packaging activity should be verified at submission")
	}
	if resp.Activity.Points != 8 {
		t.Errorf("Activity.Points = %d, want 8", resp.Activity.Points)
	}
	if resp.User.Points != 8 {
		t.Errorf("User.Points = %d, want 8", resp.User.Points)
	}
}

func TestActivitySubmitPendingThenModerate(t *testing.T) {
	s, _ := newRewardsTestServer(t)
	r := s.Router()

	submitActivity(t, r, "u1", model.ActivityPackaging)

	// Social posts wait for moderation and credit nothing up front.
	resp := submitActivity(t, r, "u1", model.ActivitySocial)
	if resp.Activity.Verified {
		t.Error("social activity should not be verified at submission")
	}
	if resp.Activity.Points != 0 {
		t.Errorf("Activity.Points = %d, want 0", resp.Activity.Points)
	}
	if resp.User.Points != 8 {
		t.Errorf("User.Points = %d, want 8", resp.User.Points)
	}
	socialID := resp.Activity.ID.Hex()

	resp = moderateActivity(t, r, socialID, "approve")
	if !resp.Activity.Verified || resp.Activity.Points != 5 {
		t.Errorf("approved activity = %+v, want verified with 5 points", resp.Activity)
	}
	if resp.User.Points != 13 {
		t.Errorf("User.Points after approve = %d, want 13", resp.User.Points)
	}

	// Reversing the decision claws back exactly what the approval credited.
	resp = moderateActivity(t, r, socialID, "reject")
	if resp.Activity.Verified || resp.Activity.Points != 0 {
		t.Errorf("rejected activity = %+v, want unverified with 0 points", resp.Activity)
	}
	if resp.User.Points != 8 {
		t.Errorf("User.Points after reject = %d, want 8", resp.User.Points)
	}

	// Repeating the same decision changes nothing.
	resp = moderateActivity(t, r, socialID, "reject")
	if resp.User.Points != 8 {
		t.Errorf("User.Points after repeated reject = %d, want 8", resp.User.Points)
	}
}

func TestActivitySubmitValidation(t *testing.T) {
	s, _ := newRewardsTestServer(t)
	r := s.Router()

	tests := []struct {
		name string
		body string
	}{
		{"missing user_id", `{"type":"purchase"}`},
		{"unknown type", `{"user_id":"u1","type":"volunteering"}`},
		{"invalid JSON", `{"user_id":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/user-rewards", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d, body: %s", w.Code, http.StatusBadRequest, w.Body)
			}
		})
	}
}

func TestActivityModerateNotFound(t *testing.T) {
	s, _ := newRewardsTestServer(t)
	r := s.Router()

	// Wrong length, right length but not hex, and well-formed but absent all
	// report as not-found.
	for _, id := range []string{"not-a-hex-id", "zzzzzzzzzzzzzzzzzzzzzzzz", primitive.NewObjectID().Hex()} {
		w := doJSON(t, r, http.MethodPut, "/api/user-rewards",
			fmt.Sprintf(`{"id":%q,"action":"approve"}`, id))
		if w.Code != http.StatusNotFound {
			t.Errorf("status for ID %s = %d, want %d", id, w.Code, http.StatusNotFound)
		}
	}

	w := doJSON(t, r, http.MethodPut, "/api/user-rewards", `{"id":"x","action":"promote"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status for invalid action = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRewardRedeem(t *testing.T) {
	s, _ := newRewardsTestServer(t)
	r := s.Router()

	// Ten auto-verified purchases reach the redemption threshold exactly.
	for i := 0; i < 10; i++ {
		submitActivity(t, r, "u1", model.ActivityPurchase)
	}

	w := doJSON(t, r, http.MethodPost, "/api/user-rewards/redeem", `{"user_id":"u1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("redeem status = %d, body: %s", w.Code, w.Body)
	}
	resp := struct {
		Message   string   `json:"message"`
		Points    int      `json:"points"`
		Discounts []string `json:"discounts"`
	}{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error unmarshalling response: %v", err)
	}
	if resp.Message != "Discount redeemed!" {
		t.Errorf("Message = %q", resp.Message)
	}
	if resp.Points != 0 {
		t.Errorf("Points = %d, want 0", resp.Points)
	}
	if len(resp.Discounts) != 1 || resp.Discounts[0] != model.RedemptionVoucher {
		t.Errorf("Discounts = %v, want one %q", resp.Discounts, model.RedemptionVoucher)
	}

	// Balance is now below the threshold, so a retry must not debit again.
	w = doJSON(t, r, http.MethodPost, "/api/user-rewards/redeem", `{"user_id":"u1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("second redeem status = %d, body: %s", w.Code, w.Body)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error unmarshalling response: %v", err)
	}
	if resp.Message != "Not enough points to redeem." {
		t.Errorf("Message = %q", resp.Message)
	}
	if resp.Points != 0 || len(resp.Discounts) != 1 {
		t.Errorf("second redeem changed balance: points = %d, discounts = %v", resp.Points, resp.Discounts)
	}
}

func TestRewardRedeemUserNotFound(t *testing.T) {
	s, _ := newRewardsTestServer(t)
	r := s.Router()

	w := doJSON(t, r, http.MethodPost, "/api/user-rewards/redeem", `{"user_id":"ghost"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	resp := struct {
		Message string `json:"message"`
		Points  int    `json:"points"`
	}{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error unmarshalling response: %v", err)
	}
	if resp.Message != "User not found." || resp.Points != 0 {
		t.Errorf("response = %+v", resp)
	}
}

func TestRewardBalanceUnknownUserIsZero(t *testing.T) {
	s, _ := newRewardsTestServer(t)
	r := s.Router()

	w := doJSON(t, r, http.MethodGet, "/api/user-rewards/balance/newcomer", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body)
	}
	resp := struct {
		UserID    string   `json:"user_id"`
		Points    int      `json:"points"`
		Discounts []string `json:"discounts"`
	}{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error unmarshalling response: %v", err)
	}
	if resp.UserID != "newcomer" || resp.Points != 0 || len(resp.Discounts) != 0 {
		t.Errorf("response = %+v, want zero balance", resp)
	}
}

// gatedRewardsStore releases the first two activity reads together, so two
// concurrent moderation requests are guaranteed to start from the same
// snapshot before either takes the user lock.
type gatedRewardsStore struct {
	*fakeRewardsStore
	gate  sync.WaitGroup
	reads int32
}

func (g *gatedRewardsStore) ActivityFind(ctx context.Context, activityID string) (model.Activity, error) {
	a, err := g.fakeRewardsStore.ActivityFind(ctx, activityID)
	if atomic.AddInt32(&g.reads, 1) <= 2 {
		g.gate.Done()
		g.gate.Wait()
	}
	return a, err
}

func TestActivityModerateConcurrentApprovals(t *testing.T) {
	f := newFakeRewardsStore()
	g := &gatedRewardsStore{fakeRewardsStore: f}
	g.gate.Add(2)
	s := Server{
		Rewards: g,
		Logger:  applog.NewLogger(applog.LevelOff, io.Discard),
	}
	r := s.Router()

	resp := submitActivity(t, r, "u1", model.ActivitySocial)
	id := resp.Activity.ID.Hex()

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := doJSON(t, r, http.MethodPut, "/api/user-rewards",
				fmt.Sprintf(`{"id":%q,"action":"approve"}`, id))
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Fatalf("moderation request %d status = %d", i, code)
		}
	}

	// Both requests approved the same 5-point activity; only one credit may
	// land.
	reward, err := f.RewardFind(context.Background(), "u1")
	if err != nil {
		t.Fatalf("RewardFind() err: %v", err)
	}
	if reward.Points != 5 {
		t.Errorf("Points = %d, want 5 after duplicate approvals", reward.Points)
	}

	f.mu.Lock()
	sum := 0
	for _, a := range f.activities {
		if a.Verified {
			sum += a.Points
		}
	}
	f.mu.Unlock()
	if reward.Points != sum {
		t.Errorf("balance = %d, sum of verified points = %d", reward.Points, sum)
	}
}

// TestRewardLedgerConsistency drives random submissions and moderation
// decisions and checks after every step that the balance equals the sum of
// verified activity points.
func TestRewardLedgerConsistency(t *testing.T) {
	s, f := newRewardsTestServer(t)
	r := s.Router()
	rng := rand.New(rand.NewSource(1))

	types := []model.ActivityType{
		model.ActivityPurchase, model.ActivityUpcycle,
		model.ActivityPackaging, model.ActivitySocial,
	}
	var ids []string
	for step := 0; step < 200; step++ {
		if len(ids) == 0 || rng.Intn(3) == 0 {
			resp := submitActivity(t, r, "u1", types[rng.Intn(len(types))])
			ids = append(ids, resp.Activity.ID.Hex())
		} else {
			action := "approve"
			if rng.Intn(2) == 0 {
				action = "reject"
			}
			moderateActivity(t, r, ids[rng.Intn(len(ids))], action)
		}

		f.mu.Lock()
		sum := 0
		for _, a := range f.activities {
			if a.Verified {
				sum += a.Points
			}
		}
		balance := f.rewards["u1"].Points
		f.mu.Unlock()
		if balance != sum {
			t.Fatalf("step %d: balance = %d, sum of verified points = %d", step, balance, sum)
		}
	}
}
