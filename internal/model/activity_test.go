package model

import "testing"

func TestActivityTypePoints(t *testing.T) {
	tests := []struct {
		typ  ActivityType
		want int
	}{
		{ActivityUpcycle, 15},
		{ActivityPackaging, 8},
		{ActivityPurchase, 10},
		{ActivitySocial, 5},
	}
	for _, tt := range tests {
		got, ok := tt.typ.Points()
		if !ok {
			t.Errorf("Points() for %s: not in table", tt.typ)
		}
		if got != tt.want {
			t.Errorf("Points() for %s = %d, want %d", tt.typ, got, tt.want)
		}
	}

	if _, ok := ActivityType("recycle-bin-dive").Points(); ok {
		t.Error("unknown type should not resolve to a point value")
	}
}

func TestActivityTypeAutoVerify(t *testing.T) {
	for _, typ := range []ActivityType{ActivityPurchase, ActivityPackaging} {
		if !typ.AutoVerify() {
			t.Errorf("%s should auto-verify", typ)
		}
	}
	for _, typ := range []ActivityType{ActivityUpcycle, ActivitySocial} {
		if typ.AutoVerify() {
			t.Errorf("%s should require moderation", typ)
		}
	}
}
