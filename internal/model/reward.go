package model

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	RedemptionThreshold = 100
	RedemptionDebit     = 100
	RedemptionVoucher   = "10% off next order"
)

// UserReward is the per-user points balance, created lazily on the first
// activity that touches it. Points never go negative: credits come only from
// verified activities and debits only from redemptions and moderation
// reconciliation of previously-credited points.
type UserReward struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    string             `bson:"user_id" json:"user_id"`
	Points    int                `bson:"points" json:"points"`
	Badges    []string           `bson:"badges" json:"badges"`
	Discounts []string           `bson:"discounts" json:"discounts"`
	CreatedAt primitive.DateTime `bson:"created_at" json:"-"`
	UpdatedAt primitive.DateTime `bson:"updated_at" json:"-"`
}
