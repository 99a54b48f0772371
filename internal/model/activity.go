package model

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ActivityType string

const (
	ActivityPurchase  ActivityType = "purchase"
	ActivityUpcycle   ActivityType = "upcycle"
	ActivityPackaging ActivityType = "packaging"
	ActivitySocial    ActivityType = "social"
)

// PointsByType is the fixed award table. An approve decision always
// recomputes from this table, it never trusts points on the submitted
// activity.
var PointsByType = map[ActivityType]int{
	ActivityUpcycle:   15,
	ActivityPackaging: 8,
	ActivityPurchase:  10,
	ActivitySocial:    5,
}

func (t ActivityType) Points() (int, bool) {
	p, ok := PointsByType[t]
	return p, ok
}

// AutoVerify reports whether activities of this type are verified and
// credited immediately at submission, skipping moderation.
func (t ActivityType) AutoVerify() bool {
	return t == ActivityPurchase || t == ActivityPackaging
}

type Activity struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"user_id" json:"user_id"`
	Type        ActivityType       `bson:"type" json:"type"`
	Description string             `bson:"description" json:"description"`
	ProofURL    string             `bson:"proof_url" json:"proof_url,omitempty"`
	Points      int                `bson:"points" json:"points"`
	Verified    bool               `bson:"verified" json:"verified"`
	Date        primitive.DateTime `bson:"date" json:"date"`
}
