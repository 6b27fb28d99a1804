package statestore

import (
	"context"
	"sort"
	"sync"
	"time"
)

type itemKey struct {
	itemType string
	itemID   int64
}

type MemStateStore struct {
	lk   sync.Mutex
	data map[itemKey]*CheckRecord
	next uint
}

func NewMemStateStore() *MemStateStore {
	return &MemStateStore{
		data: make(map[itemKey]*CheckRecord),
	}
}

func (s *MemStateStore) SetState(ctx context.Context, itemType string, itemID, userID int64, state CheckState, meta *Metadata) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	k := itemKey{itemType: itemType, itemID: itemID}
	rec, ok := s.data[k]
	if !ok {
		s.next++
		rec = &CheckRecord{
			ID:        s.next,
			CreatedAt: time.Now(),
			ItemType:  itemType,
			ItemID:    itemID,
			UserID:    userID,
		}
		s.data[k] = rec
	}
	rec.State = state
	rec.UpdatedAt = time.Now()
	if meta != nil {
		if meta.IPAddress != nil {
			rec.IPAddress = meta.IPAddress
		}
		if meta.UserAgent != nil {
			rec.UserAgent = meta.UserAgent
		}
		if meta.Referrer != nil {
			rec.Referrer = meta.Referrer
		}
	}
	return nil
}

func (s *MemStateStore) GetRecord(ctx context.Context, itemType string, itemID int64) (*CheckRecord, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	rec, ok := s.data[itemKey{itemType: itemType, itemID: itemID}]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (s *MemStateStore) Pending(ctx context.Context, itemType string, afterID uint, limit int) ([]CheckRecord, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	out := []CheckRecord{}
	for _, rec := range s.data {
		if rec.ItemType == itemType && rec.State == StateNew && rec.ID > afterID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStateStore) AnonymizeUser(ctx context.Context, userID int64, newIP string) (int64, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	var count int64
	for _, rec := range s.data {
		if rec.UserID == userID && rec.IPAddress != nil {
			ip := newIP
			rec.IPAddress = &ip
			count++
		}
	}
	return count, nil
}
