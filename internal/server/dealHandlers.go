package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"ecoretail/internal/database"
	"ecoretail/internal/model"
)

// dealView is an ExpiryDeal plus its derived display fields. The derived
// fields depend on "now" and are recomputed on every read; storing them
// would let them go stale between reads.
type dealView struct {
	Barcode         string        `json:"barcode"`
	Name            string        `json:"name"`
	OriginalPrice   float64       `json:"original_price"`
	DiscountPercent float64       `json:"discount_percent"`
	ExpiryDate      time.Time     `json:"expiry_date"`
	ImageURL        string        `json:"image_url,omitempty"`
	DaysLeft        int           `json:"days_left"`
	Urgency         model.Urgency `json:"urgency"`
	DiscountedPrice float64       `json:"discounted_price"`
}

func dealViewFrom(d model.ExpiryDeal, now time.Time) dealView {
	return dealView{
		Barcode:         d.Barcode,
		Name:            d.Name,
		OriginalPrice:   d.OriginalPrice,
		DiscountPercent: d.DiscountPercent,
		ExpiryDate:      d.ExpiryDate,
		ImageURL:        d.ImageURL,
		DaysLeft:        d.DaysLeft(now),
		Urgency:         d.UrgencyAt(now),
		DiscountedPrice: d.DiscountedPrice(),
	}
}

func (s Server) dealGetAll() http.HandlerFunc {
	type response struct {
		Deals []dealView `json:"deals"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := s.Deals.DealsFindAll(r.Context())
		if err != nil {
			s.Logger.Errorf("dealGetAll: Error getting all ExpiryDeals, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		sort.Slice(ds, func(i, j int) bool {
			return ds[i].ExpiryDate.Before(ds[j].ExpiryDate)
		})

		now := time.Now()
		resp := response{Deals: []dealView{}}
		for _, d := range ds {
			resp.Deals = append(resp.Deals, dealViewFrom(d, now))
		}
		s.writeJsonResponse(w, resp, http.StatusOK)
	}
}

func (s Server) dealUpsert() http.HandlerFunc {
	type request struct {
		Barcode string `json:"barcode"`
		model.DealPatch
	}
	type response struct {
		Success bool     `json:"success"`
		Deal    dealView `json:"deal"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("dealUpsert: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if req.Barcode == "" {
			s.Logger.Debug("dealUpsert: barcode not supplied")
			http.Error(w, "barcode is required", http.StatusBadRequest)
			return
		}
		if req.DiscountPercent != nil && (*req.DiscountPercent < 0 || *req.DiscountPercent > 100) {
			s.Logger.Debugf("dealUpsert: discount_percent out of range: %v", *req.DiscountPercent)
			http.Error(w, "discount_percent must be between 0 and 100", http.StatusBadRequest)
			return
		}
		if req.OriginalPrice != nil && *req.OriginalPrice < 0 {
			s.Logger.Debugf("dealUpsert: negative original_price: %v", *req.OriginalPrice)
			http.Error(w, "original_price must not be negative", http.StatusBadRequest)
			return
		}

		if _, err := s.Deals.DealFind(r.Context(), req.Barcode); err != nil {
			if !errors.Is(err, database.ErrDealNotFound) {
				s.Logger.Errorf("dealUpsert: Error finding existing ExpiryDeal, err: %v", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			// First save for this barcode needs at least a name.
			if req.Name == nil || *req.Name == "" {
				s.Logger.Debugf("dealUpsert: name not supplied for new barcode: %s", req.Barcode)
				http.Error(w, "name is required for a new deal", http.StatusBadRequest)
				return
			}
		}

		d, err := s.Deals.DealUpsert(r.Context(), req.Barcode, req.DealPatch)
		if err != nil {
			s.Logger.Errorf("dealUpsert: Error upserting ExpiryDeal with barcode: %s, err: %v", req.Barcode, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, response{
			Success: true,
			Deal:    dealViewFrom(d, time.Now()),
		}, http.StatusOK)
	}
}

func (s Server) dealGetOne() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		barcode := mux.Vars(r)["barcode"]
		d, err := s.Deals.DealFind(r.Context(), barcode)
		if err != nil {
			if errors.Is(err, database.ErrDealNotFound) {
				s.Logger.Debugf("dealGetOne: No ExpiryDeal with barcode: %s", barcode)
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			s.Logger.Errorf("dealGetOne: Error finding ExpiryDeal with barcode: %s, err: %v", barcode, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		s.writeJsonResponse(w, dealViewFrom(d, time.Now()), http.StatusOK)
	}
}
