package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ecoretail/internal/model"
)

func (db Database) RewardFind(ctx context.Context, userID string) (model.UserReward, error) {
	var r model.UserReward
	err := db.Collection(CollectionUserRewards).FindOne(ctx, bson.M{"user_id": userID}).Decode(&r)
	return r, errors.Wrapf(err, "error finding UserReward for UserID: %s", userID)
}

// RewardFindOrCreate returns the balance record for the user, creating a
// zeroed one if this is the first time the user shows up in the ledger.
func (db Database) RewardFindOrCreate(ctx context.Context, userID string) (model.UserReward, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var r model.UserReward
	err := db.Collection(CollectionUserRewards).FindOneAndUpdate(
		ctx,
		bson.M{"user_id": userID},
		bson.M{"$setOnInsert": bson.M{
			"user_id":    userID,
			"points":     0,
			"badges":     []string{},
			"discounts":  []string{},
			"created_at": primitive.NewDateTimeFromTime(time.Now()),
			"updated_at": primitive.NewDateTimeFromTime(time.Now()),
		}},
		opts,
	).Decode(&r)
	return r, errors.Wrapf(err, "error finding or creating UserReward for UserID: %s", userID)
}

// RewardAdjustPoints applies a signed delta to the balance and returns the
// updated record. Callers serialize per user so a negative delta can only
// claw back points they credited earlier.
func (db Database) RewardAdjustPoints(ctx context.Context, userID string, delta int) (model.UserReward, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var r model.UserReward
	err := db.Collection(CollectionUserRewards).FindOneAndUpdate(
		ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$inc": bson.M{"points": delta},
			"$set": bson.M{"updated_at": primitive.NewDateTimeFromTime(time.Now())},
		},
		opts,
	).Decode(&r)
	return r, errors.Wrapf(err, "error adjusting points by %d for UserID: %s", delta, userID)
}

// RewardRedeem debits the redemption amount and appends one voucher in a
// single conditional update. The points floor sits in the filter, so a
// concurrent or retried redemption can never double-debit below it.
func (db Database) RewardRedeem(ctx context.Context, userID string, debit int, voucher string) (model.UserReward, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var r model.UserReward
	err := db.Collection(CollectionUserRewards).FindOneAndUpdate(
		ctx,
		bson.M{"user_id": userID, "points": bson.M{"$gte": debit}},
		bson.M{
			"$inc":  bson.M{"points": -debit},
			"$push": bson.M{"discounts": voucher},
			"$set":  bson.M{"updated_at": primitive.NewDateTimeFromTime(time.Now())},
		},
		opts,
	).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return r, errors.WithMessagef(ErrInsufficientPoints, "UserID: %s", userID)
	}
	return r, errors.Wrapf(err, "error redeeming %d points for UserID: %s", debit, userID)
}
