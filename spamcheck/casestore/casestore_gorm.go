package casestore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormCaseStore struct {
	DB *gorm.DB
}

func NewGormCaseStore(db *gorm.DB) (*GormCaseStore, error) {
	if err := db.AutoMigrate(&ModerationCase{}); err != nil {
		return nil, err
	}
	return &GormCaseStore{DB: db}, nil
}

func (s *GormCaseStore) CreateIfFresh(ctx context.Context, mc ModerationCase) (*ModerationCase, bool, error) {
	if mc.Status == "" {
		mc.Status = StatusOpen
	}
	// a single conditional upsert keeps duplicate suppression safe under
	// concurrent sweeps of the same item: an open case suppresses, a
	// resolved one is reopened for the new detection
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "target_type"}, {Name: "target_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"payload":    mc.Payload,
			"score":      mc.Score,
			"reason":     mc.Reason,
			"created_by": mc.CreatedBy,
			"status":     StatusOpen,
			"updated_at": time.Now(),
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Neq{
				Column: clause.Column{Table: "moderation_cases", Name: "status"},
				Value:  string(StatusOpen),
			},
		}},
	}).Create(&mc)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected > 0
	stored, err := s.GetByTarget(ctx, mc.TargetType, mc.TargetID)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (s *GormCaseStore) GetByTarget(ctx context.Context, targetType string, targetID int64) (*ModerationCase, error) {
	var mc ModerationCase
	err := s.DB.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		First(&mc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &mc, nil
}

func (s *GormCaseStore) Resolve(ctx context.Context, targetType string, targetID int64, status CaseStatus) error {
	res := s.DB.WithContext(ctx).Model(&ModerationCase{}).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
