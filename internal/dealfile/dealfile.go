// Package dealfile is the flat-file variant of the expiry-deal store. The
// whole file is the unit of write: every mutation reads the file, applies the
// change, and writes the result to a temp file that is renamed over the
// original, under a process-wide mutex. That keeps two racing upserts on the
// same barcode from losing each other's fields.
package dealfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ecoretail/internal/database"
	"ecoretail/internal/model"
)

type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

type dealsFile struct {
	Deals []model.ExpiryDeal `json:"deals"`
}

func (s *Store) DealUpsert(ctx context.Context, barcode string, p model.DealPatch) (model.ExpiryDeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	df, err := s.load()
	if err != nil {
		return model.ExpiryDeal{}, err
	}

	idx := -1
	for i, d := range df.Deals {
		if d.Barcode == barcode {
			idx = i
			break
		}
	}
	if idx == -1 {
		df.Deals = append(df.Deals, model.ExpiryDeal{
			Barcode:   barcode,
			CreatedAt: primitive.NewDateTimeFromTime(time.Now()),
		})
		idx = len(df.Deals) - 1
	}
	df.Deals[idx].ApplyPatch(p)

	if err = s.persist(df); err != nil {
		return model.ExpiryDeal{}, err
	}
	return df.Deals[idx], nil
}

func (s *Store) DealFind(ctx context.Context, barcode string) (model.ExpiryDeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	df, err := s.load()
	if err != nil {
		return model.ExpiryDeal{}, err
	}
	for _, d := range df.Deals {
		if d.Barcode == barcode {
			return d, nil
		}
	}
	return model.ExpiryDeal{}, errors.WithMessagef(database.ErrDealNotFound, "barcode: %s", barcode)
}

func (s *Store) DealsFindAll(ctx context.Context) ([]model.ExpiryDeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	df, err := s.load()
	if err != nil {
		return nil, err
	}
	return df.Deals, nil
}

func (s *Store) load() (dealsFile, error) {
	df := dealsFile{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return df, nil
		}
		return df, errors.Wrapf(err, "error reading deals file: %s", s.path)
	}
	if err = json.Unmarshal(data, &df); err != nil {
		return df, errors.Wrapf(err, "error unmarshalling deals file: %s", s.path)
	}
	return df, nil
}

func (s *Store) persist(df dealsFile) error {
	data, err := json.MarshalIndent(df, "", "  ")
	if err != nil {
		return errors.Wrap(err, "error marshalling deals file")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "error creating temp file for deals file: %s", s.path)
	}
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "error writing temp deals file: %s", tmp.Name())
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "error closing temp deals file: %s", tmp.Name())
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "error renaming temp deals file over: %s", s.path)
	}
	return nil
}
