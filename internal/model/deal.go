package model

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Urgency is a display bucket derived from days-until-expiry. It is always
// recomputed from the stored expiry date and "now", never persisted.
type Urgency string

const (
	UrgencyFresh    Urgency = "fresh"
	UrgencyWarning  Urgency = "warning"
	UrgencyCritical Urgency = "critical"
	UrgencyExpired  Urgency = "expired"
)

type ExpiryDeal struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Barcode         string             `bson:"barcode" json:"barcode"`
	Name            string             `bson:"name" json:"name"`
	OriginalPrice   float64            `bson:"original_price" json:"original_price"`
	DiscountPercent float64            `bson:"discount_percent" json:"discount_percent"`
	ExpiryDate      time.Time          `bson:"expiry_date" json:"expiry_date"`
	ImageURL        string             `bson:"image_url" json:"image_url,omitempty"`
	CreatedAt       primitive.DateTime `bson:"created_at" json:"created_at"`
	UpdatedAt       primitive.DateTime `bson:"updated_at" json:"updated_at"`
}

// DealPatch is a partial update keyed by barcode. Nil fields are left
// untouched by an upsert.
type DealPatch struct {
	Name            *string    `json:"name"`
	OriginalPrice   *float64   `json:"original_price"`
	DiscountPercent *float64   `json:"discount_percent"`
	ExpiryDate      *time.Time `json:"expiry_date"`
	ImageURL        *string    `json:"image_url"`
}

func (d *ExpiryDeal) ApplyPatch(p DealPatch) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.OriginalPrice != nil {
		d.OriginalPrice = *p.OriginalPrice
	}
	if p.DiscountPercent != nil {
		d.DiscountPercent = *p.DiscountPercent
	}
	if p.ExpiryDate != nil {
		d.ExpiryDate = *p.ExpiryDate
	}
	if p.ImageURL != nil {
		d.ImageURL = *p.ImageURL
	}
	d.UpdatedAt = primitive.NewDateTimeFromTime(time.Now())
}

// DaysLeft is ceil((expiry - now) / 24h). Negative once the deal is expired.
func (d ExpiryDeal) DaysLeft(now time.Time) int {
	return int(math.Ceil(d.ExpiryDate.Sub(now).Hours() / 24))
}

func (d ExpiryDeal) UrgencyAt(now time.Time) Urgency {
	return UrgencyFor(d.DaysLeft(now))
}

func UrgencyFor(daysLeft int) Urgency {
	switch {
	case daysLeft <= 0:
		return UrgencyExpired
	case daysLeft <= 3:
		return UrgencyCritical
	case daysLeft <= 7:
		return UrgencyWarning
	default:
		return UrgencyFresh
	}
}

// DiscountedPrice applies DiscountPercent to OriginalPrice, rounded to
// 2 decimals.
func (d ExpiryDeal) DiscountedPrice() float64 {
	return math.Round(d.OriginalPrice*(1-d.DiscountPercent/100)*100) / 100
}
