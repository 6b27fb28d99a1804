package casestore

import (
	"context"
	"sync"
	"time"
)

type targetKey struct {
	targetType string
	targetID   int64
}

type MemCaseStore struct {
	lk    sync.Mutex
	cases map[targetKey]*ModerationCase
	next  uint
}

func NewMemCaseStore() *MemCaseStore {
	return &MemCaseStore{
		cases: make(map[targetKey]*ModerationCase),
	}
}

func (s *MemCaseStore) CreateIfFresh(ctx context.Context, mc ModerationCase) (*ModerationCase, bool, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	k := targetKey{targetType: mc.TargetType, targetID: mc.TargetID}
	if existing, ok := s.cases[k]; ok {
		if existing.Status == StatusOpen {
			out := *existing
			return &out, false, nil
		}
		// resolved case: reopen it for the new detection
		existing.Payload = mc.Payload
		existing.Score = mc.Score
		existing.Reason = mc.Reason
		existing.CreatedBy = mc.CreatedBy
		existing.Status = StatusOpen
		existing.UpdatedAt = time.Now()
		out := *existing
		return &out, true, nil
	}
	s.next++
	mc.ID = s.next
	mc.CreatedAt = time.Now()
	mc.UpdatedAt = mc.CreatedAt
	if mc.Status == "" {
		mc.Status = StatusOpen
	}
	stored := mc
	s.cases[k] = &stored
	out := mc
	return &out, true, nil
}

func (s *MemCaseStore) GetByTarget(ctx context.Context, targetType string, targetID int64) (*ModerationCase, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	mc, ok := s.cases[targetKey{targetType: targetType, targetID: targetID}]
	if !ok {
		return nil, ErrNotFound
	}
	out := *mc
	return &out, nil
}

func (s *MemCaseStore) Resolve(ctx context.Context, targetType string, targetID int64, status CaseStatus) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	mc, ok := s.cases[targetKey{targetType: targetType, targetID: targetID}]
	if !ok {
		return ErrNotFound
	}
	mc.Status = status
	mc.UpdatedAt = time.Now()
	return nil
}
