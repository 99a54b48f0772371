package dealfile

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"ecoretail/internal/database"
	"ecoretail/internal/model"
)

func strPtr(s string) *string        { return &s }
func floatPtr(f float64) *float64    { return &f }
func timePtr(t time.Time) *time.Time { return &t }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "expiry-deals.json"))
}

func TestDealsFindAllEmptyWhenFileMissing(t *testing.T) {
	s := newTestStore(t)
	ds, err := s.DealsFindAll(context.Background())
	if err != nil {
		t.Fatalf("DealsFindAll() err: %v", err)
	}
	if len(ds) != 0 {
		t.Errorf("expected empty store, got %d deals", len(ds))
	}
}

func TestDealUpsertCreatesAndMerges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	expiry := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	_, err := s.DealUpsert(ctx, "123", model.DealPatch{
		Name:            strPtr("Milk"),
		OriginalPrice:   floatPtr(100),
		DiscountPercent: floatPtr(20),
		ExpiryDate:      timePtr(expiry),
	})
	if err != nil {
		t.Fatalf("DealUpsert() err: %v", err)
	}

	// Second save with the same barcode updates in place, omitted fields
	// keep their values.
	d, err := s.DealUpsert(ctx, "123", model.DealPatch{DiscountPercent: floatPtr(35)})
	if err != nil {
		t.Fatalf("DealUpsert() err: %v", err)
	}
	if d.Name != "Milk" || d.OriginalPrice != 100 || d.DiscountPercent != 35 {
		t.Errorf("merge lost fields: %+v", d)
	}
	if !d.ExpiryDate.Equal(expiry) {
		t.Errorf("ExpiryDate = %v, want %v", d.ExpiryDate, expiry)
	}

	ds, err := s.DealsFindAll(ctx)
	if err != nil {
		t.Fatalf("DealsFindAll() err: %v", err)
	}
	if len(ds) != 1 {
		t.Fatalf("expected exactly one record for barcode 123, got %d", len(ds))
	}
}

func TestDealUpsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := model.DealPatch{
		Name:            strPtr("Bread"),
		OriginalPrice:   floatPtr(45),
		DiscountPercent: floatPtr(10),
		ExpiryDate:      timePtr(time.Now().Add(72 * time.Hour).UTC()),
	}

	first, err := s.DealUpsert(ctx, "456", p)
	if err != nil {
		t.Fatalf("DealUpsert() err: %v", err)
	}
	second, err := s.DealUpsert(ctx, "456", p)
	if err != nil {
		t.Fatalf("DealUpsert() err: %v", err)
	}

	if second.Name != first.Name || second.OriginalPrice != first.OriginalPrice ||
		second.DiscountPercent != first.DiscountPercent || !second.ExpiryDate.Equal(first.ExpiryDate) {
		t.Errorf("second upsert changed stored state: %+v vs %+v", first, second)
	}

	ds, _ := s.DealsFindAll(ctx)
	if len(ds) != 1 {
		t.Errorf("duplicate record after repeated upsert, got %d deals", len(ds))
	}
}

func TestDealUpsertPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expiry-deals.json")
	ctx := context.Background()

	s := NewStore(path)
	created, err := s.DealUpsert(ctx, "789", model.DealPatch{Name: strPtr("Yogurt")})
	if err != nil {
		t.Fatalf("DealUpsert() err: %v", err)
	}
	if created.CreatedAt == 0 {
		t.Fatal("CreatedAt not set on create")
	}

	reopened := NewStore(path)
	d, err := reopened.DealFind(ctx, "789")
	if err != nil {
		t.Fatalf("DealFind() after reopen err: %v", err)
	}
	if d.Name != "Yogurt" {
		t.Errorf("Name = %s, want Yogurt", d.Name)
	}
	if d.CreatedAt != created.CreatedAt {
		t.Errorf("CreatedAt = %v after reopen, want %v", d.CreatedAt, created.CreatedAt)
	}
}

func TestDealFindNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.DealFind(context.Background(), "nope")
	if !errors.Is(err, database.ErrDealNotFound) {
		t.Errorf("expected ErrDealNotFound, got %v", err)
	}
}

func TestDealUpsertConcurrentSameBarcode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.DealUpsert(ctx, "race", model.DealPatch{
				Name:            strPtr(fmt.Sprintf("Deal %d", i)),
				DiscountPercent: floatPtr(float64(i)),
			})
			if err != nil {
				t.Errorf("DealUpsert() err: %v", err)
			}
		}(i)
	}
	wg.Wait()

	ds, err := s.DealsFindAll(ctx)
	if err != nil {
		t.Fatalf("DealsFindAll() err: %v", err)
	}
	if len(ds) != 1 {
		t.Errorf("expected one record after concurrent upserts, got %d", len(ds))
	}
}
