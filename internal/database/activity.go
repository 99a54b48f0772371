package database

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ecoretail/internal/model"
)

func (db Database) ActivityInsert(ctx context.Context, a model.Activity) (model.Activity, error) {
	r, err := db.Collection(CollectionActivities).InsertOne(ctx, a)
	if err != nil {
		return a, errors.Wrapf(err, "error inserting Activity: %+v", a)
	}
	a.ID = r.InsertedID.(primitive.ObjectID)
	return a, nil
}

func (db Database) ActivityFind(ctx context.Context, activityID string) (model.Activity, error) {
	var a model.Activity
	// An ID that is not a valid ObjectID cannot match any document, so it
	// reports as not-found rather than as a server error.
	objID, err := primitive.ObjectIDFromHex(activityID)
	if err != nil {
		return a, errors.WithMessagef(mongo.ErrNoDocuments, "invalid Activity ID: %s", activityID)
	}
	err = db.Collection(CollectionActivities).FindOne(ctx, bson.M{"_id": objID}).Decode(&a)
	return a, errors.Wrapf(err, "error finding Activity with ID: %s", activityID)
}

func (db Database) ActivitiesFindAll(ctx context.Context) ([]model.Activity, error) {
	var as []model.Activity
	opts := options.Find().SetSort(bson.M{"date": -1})
	cur, err := db.Collection(CollectionActivities).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "error getting cursor to find all Activities")
	}
	if err = cur.All(ctx, &as); err != nil {
		return nil, errors.Wrap(err, "error getting all Activities from cursor")
	}
	return as, nil
}

// ActivitySetVerification flips the moderation state. Re-applying the same
// decision matches without modifying, which is fine; only a missing document
// is an error.
func (db Database) ActivitySetVerification(ctx context.Context, activityID primitive.ObjectID, verified bool, points int) error {
	res, err := db.Collection(CollectionActivities).UpdateOne(
		ctx,
		bson.M{"_id": activityID},
		bson.M{"$set": bson.M{
			"verified": verified,
			"points":   points,
		}},
	)
	if err != nil {
		return errors.Wrapf(err, "error updating verification for Activity with ID: %s", activityID.Hex())
	}
	if res.MatchedCount == 0 {
		return errors.WithMessagef(mongo.ErrNoDocuments, "no Activity with ID: %s", activityID.Hex())
	}
	return nil
}
