package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ecoretail/internal/database"
	"ecoretail/internal/model"
)

func (s Server) activitySubmit() http.HandlerFunc {
	type request struct {
		UserID      string             `json:"user_id"`
		Type        model.ActivityType `json:"type"`
		Description string             `json:"description"`
		ProofURL    string             `json:"proof_url"`
	}
	type response struct {
		Success  bool             `json:"success"`
		Activity model.Activity   `json:"activity"`
		User     model.UserReward `json:"user"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("activitySubmit: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if req.UserID == "" {
			s.Logger.Debug("activitySubmit: user_id not supplied")
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}
		points, ok := req.Type.Points()
		if !ok {
			s.Logger.Debugf("activitySubmit: unknown activity type: %s", req.Type)
			http.Error(w, "unknown activity type", http.StatusBadRequest)
			return
		}

		unlock := userLocks.lock(req.UserID)
		defer unlock()

		reward, err := s.Rewards.RewardFindOrCreate(r.Context(), req.UserID)
		if err != nil {
			s.Logger.Errorf("activitySubmit: Error finding or creating UserReward for UserID: %s, err: %v", req.UserID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		verified := req.Type.AutoVerify()
		a := model.Activity{
			UserID:      req.UserID,
			Type:        req.Type,
			Description: req.Description,
			ProofURL:    req.ProofURL,
			Verified:    verified,
			Date:        primitive.NewDateTimeFromTime(time.Now()),
		}
		if verified {
			a.Points = points
		}

		a, err = s.Rewards.ActivityInsert(r.Context(), a)
		if err != nil {
			s.Logger.Errorf("activitySubmit: Error inserting Activity for UserID: %s, err: %v", req.UserID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if verified {
			reward, err = s.Rewards.RewardAdjustPoints(r.Context(), req.UserID, points)
			if err != nil {
				s.Logger.Errorf("activitySubmit: Error crediting %d points for UserID: %s, err: %v", points, req.UserID, err)
				// The activity made it in but the credit did not; mark it
				// unverified so a later moderation pass can credit it once.
				if vErr := s.Rewards.ActivitySetVerification(r.Context(), a.ID, false, 0); vErr != nil {
					s.Logger.Errorf("activitySubmit: Error reverting verification for Activity with ID: %s, err: %v", a.ID.Hex(), vErr)
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}

		s.writeJsonResponse(w, response{
			Success:  true,
			Activity: a,
			User:     reward,
		}, http.StatusOK)
	}
}

func (s Server) activityList() http.HandlerFunc {
	type response struct {
		Activities []model.Activity `json:"activities"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		as, err := s.Rewards.ActivitiesFindAll(r.Context())
		if err != nil {
			s.Logger.Errorf("activityList: Error getting all Activities, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if as == nil {
			as = []model.Activity{}
		}
		s.writeJsonResponse(w, response{Activities: as}, http.StatusOK)
	}
}

func (s Server) activityModerate() http.HandlerFunc {
	type request struct {
		ID     string `json:"id"`
		Action string `json:"action"`
	}
	type response struct {
		Success  bool             `json:"success"`
		Activity model.Activity   `json:"activity"`
		User     model.UserReward `json:"user"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("activityModerate: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.Action != "approve" && req.Action != "reject" {
			s.Logger.Debugf("activityModerate: invalid action: %s", req.Action)
			http.Error(w, "action must be approve or reject", http.StatusBadRequest)
			return
		}

		a, err := s.Rewards.ActivityFind(r.Context(), req.ID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				s.Logger.Debugf("activityModerate: No Activity with ID: %s", req.ID)
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("activityModerate: Error finding Activity with ID: %s, err: %v", req.ID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		unlock := userLocks.lock(a.UserID)
		defer unlock()

		// The read above only identified which user to lock. Re-read under
		// the lock so prevCredited reflects any moderation of this activity
		// that finished while we waited; otherwise two concurrent approvals
		// both see the pre-approval state and credit twice.
		a, err = s.Rewards.ActivityFind(r.Context(), req.ID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				s.Logger.Debugf("activityModerate: No Activity with ID: %s", req.ID)
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("activityModerate: Error finding Activity with ID: %s, err: %v", req.ID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		// The decision recomputes points from the award table; an earlier
		// approval may have credited a different amount, so the balance gets
		// the difference rather than the full award.
		prevCredited := 0
		if a.Verified {
			prevCredited = a.Points
		}
		newPoints := 0
		verified := false
		if req.Action == "approve" {
			newPoints, _ = a.Type.Points()
			verified = true
		}
		delta := newPoints - prevCredited

		if err = s.Rewards.ActivitySetVerification(r.Context(), a.ID, verified, newPoints); err != nil {
			s.Logger.Errorf("activityModerate: Error updating verification for Activity with ID: %s, err: %v", req.ID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		a.Verified = verified
		a.Points = newPoints

		reward, err := s.Rewards.RewardFindOrCreate(r.Context(), a.UserID)
		if err != nil {
			s.Logger.Errorf("activityModerate: Error finding or creating UserReward for UserID: %s, err: %v", a.UserID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if delta != 0 {
			reward, err = s.Rewards.RewardAdjustPoints(r.Context(), a.UserID, delta)
			if err != nil {
				s.Logger.Errorf("activityModerate: Error adjusting points by %d for UserID: %s, err: %v", delta, a.UserID, err)
				// Put the activity back the way it was so the ledger still
				// matches the balance.
				if vErr := s.Rewards.ActivitySetVerification(r.Context(), a.ID, prevCredited > 0, prevCredited); vErr != nil {
					s.Logger.Errorf("activityModerate: Error reverting verification for Activity with ID: %s, err: %v", a.ID.Hex(), vErr)
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}

		s.writeJsonResponse(w, response{
			Success:  true,
			Activity: a,
			User:     reward,
		}, http.StatusOK)
	}
}

func (s Server) rewardRedeem() http.HandlerFunc {
	type request struct {
		UserID string `json:"user_id"`
	}
	type response struct {
		Message   string   `json:"message"`
		Points    int      `json:"points"`
		Discounts []string `json:"discounts"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("rewardRedeem: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.UserID == "" {
			s.Logger.Debug("rewardRedeem: user_id not supplied")
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}

		unlock := userLocks.lock(req.UserID)
		defer unlock()

		reward, err := s.Rewards.RewardFind(r.Context(), req.UserID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				s.Logger.Debugf("rewardRedeem: No UserReward for UserID: %s", req.UserID)
				s.writeJsonResponse(w, response{
					Message:   "User not found.",
					Points:    0,
					Discounts: []string{},
				}, http.StatusNotFound)
				return
			}
			s.Logger.Errorf("rewardRedeem: Error finding UserReward for UserID: %s, err: %v", req.UserID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		reward, err = s.Rewards.RewardRedeem(r.Context(), req.UserID, model.RedemptionDebit, model.RedemptionVoucher)
		if err != nil {
			if errors.Is(err, database.ErrInsufficientPoints) {
				s.Logger.Debugf("rewardRedeem: Not enough points for UserID: %s", req.UserID)
				s.writeJsonResponse(w, response{
					Message:   "Not enough points to redeem.",
					Points:    reward.Points,
					Discounts: reward.Discounts,
				}, http.StatusOK)
				return
			}
			s.Logger.Errorf("rewardRedeem: Error redeeming points for UserID: %s, err: %v", req.UserID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		s.writeJsonResponse(w, response{
			Message:   "Discount redeemed!",
			Points:    reward.Points,
			Discounts: reward.Discounts,
		}, http.StatusOK)
	}
}

func (s Server) rewardBalance() http.HandlerFunc {
	type response struct {
		UserID    string   `json:"user_id"`
		Points    int      `json:"points"`
		Badges    []string `json:"badges"`
		Discounts []string `json:"discounts"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userID"]
		reward, err := s.Rewards.RewardFind(r.Context(), userID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				// A user nobody has credited yet simply has a zero balance.
				s.writeJsonResponse(w, response{
					UserID:    userID,
					Points:    0,
					Badges:    []string{},
					Discounts: []string{},
				}, http.StatusOK)
				return
			}
			s.Logger.Errorf("rewardBalance: Error finding UserReward for UserID: %s, err: %v", userID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if reward.Badges == nil {
			reward.Badges = []string{}
		}
		if reward.Discounts == nil {
			reward.Discounts = []string{}
		}
		s.writeJsonResponse(w, response{
			UserID:    reward.UserID,
			Points:    reward.Points,
			Badges:    reward.Badges,
			Discounts: reward.Discounts,
		}, http.StatusOK)
	}
}
