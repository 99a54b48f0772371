package server

import (
	"context"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ecoretail/internal/client"
	"ecoretail/internal/database"
	"ecoretail/internal/model"
)

type Server struct {
	DB            database.Database
	Deals         DealStore
	Rewards       RewardsStore
	Client        client.Client
	Logger        logger
	AuthSecretKey jwk.Key
}

// DealStore is the expiry-deal storage contract, satisfied by both the Mongo
// backend (database.Database) and the flat-file backend (dealfile.Store).
type DealStore interface {
	DealUpsert(ctx context.Context, barcode string, p model.DealPatch) (model.ExpiryDeal, error)
	DealFind(ctx context.Context, barcode string) (model.ExpiryDeal, error)
	DealsFindAll(ctx context.Context) ([]model.ExpiryDeal, error)
}

// RewardsStore is the activity log plus per-user balances.
type RewardsStore interface {
	ActivityInsert(ctx context.Context, a model.Activity) (model.Activity, error)
	ActivityFind(ctx context.Context, activityID string) (model.Activity, error)
	ActivitiesFindAll(ctx context.Context) ([]model.Activity, error)
	ActivitySetVerification(ctx context.Context, activityID primitive.ObjectID, verified bool, points int) error
	RewardFind(ctx context.Context, userID string) (model.UserReward, error)
	RewardFindOrCreate(ctx context.Context, userID string) (model.UserReward, error)
	RewardAdjustPoints(ctx context.Context, userID string, delta int) (model.UserReward, error)
	RewardRedeem(ctx context.Context, userID string, debit int, voucher string) (model.UserReward, error)
}

type logger interface {
	Trace(v ...any)
	Debug(v ...any)
	Info(v ...any)
	Error(v ...any)
	Tracef(format string, v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}
