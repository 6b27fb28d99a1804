package statestore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStateStore persists check records in the service database (sqlite or
// postgres, see internal/dbutil).
type GormStateStore struct {
	DB *gorm.DB
}

func NewGormStateStore(db *gorm.DB) (*GormStateStore, error) {
	if err := db.AutoMigrate(&CheckRecord{}); err != nil {
		return nil, err
	}
	return &GormStateStore{DB: db}, nil
}

func (s *GormStateStore) SetState(ctx context.Context, itemType string, itemID, userID int64, state CheckState, meta *Metadata) error {
	// gorm does not touch UpdatedAt through OnConflict assignments, so it is
	// set explicitly
	assign := map[string]any{"state": state, "updated_at": time.Now()}
	if meta != nil {
		// only present fields overwrite; absent keys keep stored values
		if meta.IPAddress != nil {
			assign["ip_address"] = *meta.IPAddress
		}
		if meta.UserAgent != nil {
			assign["user_agent"] = *meta.UserAgent
		}
		if meta.Referrer != nil {
			assign["referrer"] = *meta.Referrer
		}
	}
	rec := CheckRecord{
		ItemType: itemType,
		ItemID:   itemID,
		UserID:   userID,
		State:    state,
	}
	if meta != nil {
		rec.IPAddress = meta.IPAddress
		rec.UserAgent = meta.UserAgent
		rec.Referrer = meta.Referrer
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_type"}, {Name: "item_id"}},
		DoUpdates: clause.Assignments(assign),
	}).Create(&rec).Error
}

func (s *GormStateStore) GetRecord(ctx context.Context, itemType string, itemID int64) (*CheckRecord, error) {
	var rec CheckRecord
	err := s.DB.WithContext(ctx).
		Where("item_type = ? AND item_id = ?", itemType, itemID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStateStore) Pending(ctx context.Context, itemType string, afterID uint, limit int) ([]CheckRecord, error) {
	var recs []CheckRecord
	q := s.DB.WithContext(ctx).
		Where("item_type = ? AND state = ? AND id > ?", itemType, StateNew, afterID).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *GormStateStore) AnonymizeUser(ctx context.Context, userID int64, newIP string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&CheckRecord{}).
		Where("user_id = ? AND ip_address IS NOT NULL", userID).
		Update("ip_address", newIP)
	return res.RowsAffected, res.Error
}
