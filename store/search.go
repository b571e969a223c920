package store

import (
	"context"
	"strings"
	"time"

	"github.com/quailyquaily/mira/db/models"
	"gorm.io/gorm"
)

// EntityHit is an entity row plus how often entries mention it.
type EntityHit struct {
	models.Entity
	MentionCount int64 `gorm:"column:mention_count"`
}

// FindEntitiesByKeywords returns candidate entities whose name contains any
// of the keywords (OR semantics, case-insensitive by construction since
// names are stored lowercase). Ranking beyond mention count is done by the
// caller, which knows match-priority tiers.
func (s *Store) FindEntitiesByKeywords(ctx context.Context, userID int64, keywords []string, entityType string) ([]EntityHit, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	q := s.DB.WithContext(ctx).
		Model(&models.Entity{}).
		Select("entities.*, COUNT(entry_entities.entry_id) AS mention_count").
		Joins("LEFT JOIN entry_entities ON entry_entities.entity_id = entities.id").
		Where("entities.user_id = ?", userID)
	if entityType != "" {
		q = q.Where("entities.type = ?", entityType)
	}

	var cond *gorm.DB
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		like := s.DB.Where("entities.name LIKE ?", "%"+kw+"%")
		if cond == nil {
			cond = like
		} else {
			cond = cond.Or(like)
		}
	}
	if cond == nil {
		return nil, nil
	}

	var hits []EntityHit
	err := q.Where(cond).
		Group("entities.id").
		Order("mention_count DESC, entities.name ASC").
		Scan(&hits).Error
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// EntriesByEntities returns entries linked to any of the given entities,
// newest first.
func (s *Store) EntriesByEntities(ctx context.Context, userID int64, entityIDs []int64, limit int) ([]models.Entry, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	var rows []models.Entry
	err := s.DB.WithContext(ctx).
		Model(&models.Entry{}).
		Distinct("entries.*").
		Joins("JOIN entry_entities ON entry_entities.entry_id = entries.id").
		Where("entries.user_id = ? AND entry_entities.entity_id IN ?", userID, entityIDs).
		Order("entries.created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// EntriesByText searches entry text directly (OR over keywords).
func (s *Store) EntriesByText(ctx context.Context, userID int64, keywords []string, limit int) ([]models.Entry, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	q := s.DB.WithContext(ctx).Model(&models.Entry{}).Where("user_id = ?", userID)

	var cond *gorm.DB
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		like := s.DB.Where("LOWER(original_text) LIKE ? OR LOWER(IFNULL(processed_text, '')) LIKE ?", "%"+kw+"%", "%"+kw+"%")
		if cond == nil {
			cond = like
		} else {
			cond = cond.Or(like)
		}
	}
	if cond == nil {
		return nil, nil
	}

	var rows []models.Entry
	err := q.Where(cond).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RelatedEntities returns entities co-mentioned with the given one, ranked
// by how many entries mention both.
func (s *Store) RelatedEntities(ctx context.Context, userID, entityID int64, limit int) ([]EntityHit, error) {
	if limit <= 0 {
		limit = 5
	}
	var hits []EntityHit
	err := s.DB.WithContext(ctx).
		Model(&models.Entity{}).
		Select("entities.*, COUNT(*) AS mention_count").
		Joins("JOIN entry_entities other ON other.entity_id = entities.id").
		Joins("JOIN entry_entities self ON self.entry_id = other.entry_id AND self.entity_id = ?", entityID).
		Where("entities.id != ? AND entities.user_id = ?", entityID, userID).
		Group("entities.id").
		Order("mention_count DESC").
		Limit(limit).
		Scan(&hits).Error
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// TypeCount is how many entities of one type a user has.
type TypeCount struct {
	Type  string `gorm:"column:type"`
	Count int64  `gorm:"column:count"`
}

// EntityTypeCounts returns per-type entity counts, largest first.
func (s *Store) EntityTypeCounts(ctx context.Context, userID int64) ([]TypeCount, error) {
	var rows []TypeCount
	err := s.DB.WithContext(ctx).
		Model(&models.Entity{}).
		Select("type, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("type").
		Order("count DESC, type ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// TopEntities returns the user's most mentioned entities.
func (s *Store) TopEntities(ctx context.Context, userID int64, limit int) ([]EntityHit, error) {
	if limit <= 0 {
		limit = 5
	}
	var hits []EntityHit
	err := s.DB.WithContext(ctx).
		Model(&models.Entity{}).
		Select("entities.*, COUNT(entry_entities.entry_id) AS mention_count").
		Joins("LEFT JOIN entry_entities ON entry_entities.entity_id = entities.id").
		Where("entities.user_id = ?", userID).
		Group("entities.id").
		Order("mention_count DESC, entities.name ASC").
		Limit(limit).
		Scan(&hits).Error
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// RecentEntries returns entries created within the last `days` days.
func (s *Store) RecentEntries(ctx context.Context, userID int64, days, limit int) ([]models.Entry, error) {
	if days <= 0 {
		days = 7
	}
	if limit <= 0 {
		limit = 5
	}
	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour).Unix()
	var rows []models.Entry
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, cutoff).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
