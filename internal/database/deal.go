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

// DealUpsert merges the non-nil patch fields into the record with the given
// barcode, creating it when absent. The whole merge runs as a single
// FindOneAndUpdate so two racing upserts on the same barcode cannot lose each
// other's fields.
func (db Database) DealUpsert(ctx context.Context, barcode string, p model.DealPatch) (model.ExpiryDeal, error) {
	set := bson.M{"updated_at": primitive.NewDateTimeFromTime(time.Now())}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.OriginalPrice != nil {
		set["original_price"] = *p.OriginalPrice
	}
	if p.DiscountPercent != nil {
		set["discount_percent"] = *p.DiscountPercent
	}
	if p.ExpiryDate != nil {
		set["expiry_date"] = *p.ExpiryDate
	}
	if p.ImageURL != nil {
		set["image_url"] = *p.ImageURL
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var d model.ExpiryDeal
	err := db.Collection(CollectionDeals).FindOneAndUpdate(
		ctx,
		bson.M{"barcode": barcode},
		bson.M{
			"$set": set,
			"$setOnInsert": bson.M{
				"barcode":    barcode,
				"created_at": primitive.NewDateTimeFromTime(time.Now()),
			},
		},
		opts,
	).Decode(&d)
	return d, errors.Wrapf(err, "error upserting ExpiryDeal with barcode: %s", barcode)
}

func (db Database) DealFind(ctx context.Context, barcode string) (model.ExpiryDeal, error) {
	var d model.ExpiryDeal
	err := db.Collection(CollectionDeals).FindOne(ctx, bson.M{"barcode": barcode}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return d, errors.WithMessagef(ErrDealNotFound, "barcode: %s", barcode)
	}
	return d, errors.Wrapf(err, "error finding ExpiryDeal with barcode: %s", barcode)
}

func (db Database) DealsFindAll(ctx context.Context) ([]model.ExpiryDeal, error) {
	var ds []model.ExpiryDeal
	cur, err := db.Collection(CollectionDeals).Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "error getting cursor to find all ExpiryDeals")
	}
	if err = cur.All(ctx, &ds); err != nil {
		return nil, errors.Wrap(err, "error getting all ExpiryDeals from cursor")
	}
	return ds, nil
}
