// Package store wraps the relational schema behind the operations the rest
// of the bot needs: entry capture, idempotent entity/tag upserts, reminder
// lifecycle and per-user aggregates.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quailyquaily/mira/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	DB  *gorm.DB
	now func() time.Time
}

func New(gdb *gorm.DB) *Store {
	return &Store{DB: gdb, now: time.Now}
}

// AddEntry persists one captured utterance. Metadata is marshaled as JSON;
// entries are immutable after this call.
func (s *Store) AddEntry(ctx context.Context, userID int64, originalText string, opts EntryOptions) (*models.Entry, error) {
	if s == nil || s.DB == nil {
		return nil, fmt.Errorf("nil store")
	}
	originalText = strings.TrimSpace(originalText)
	if originalText == "" {
		return nil, fmt.Errorf("empty entry text")
	}
	sourceType := opts.SourceType
	if sourceType == "" {
		sourceType = models.SourceText
	}

	row := models.Entry{
		UserID:       userID,
		OriginalText: originalText,
		SourceType:   sourceType,
		CreatedAt:    s.now().Unix(),
	}
	if t := strings.TrimSpace(opts.ProcessedText); t != "" {
		row.ProcessedText = &t
	}
	if p := strings.TrimSpace(opts.AudioFilePath); p != "" {
		row.AudioFilePath = &p
	}
	if len(opts.Metadata) > 0 {
		b, err := json.Marshal(opts.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal entry metadata: %w", err)
		}
		meta := string(b)
		row.Metadata = &meta
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return &row, nil
}

type EntryOptions struct {
	ProcessedText string
	SourceType    string
	AudioFilePath string
	Metadata      map[string]any
}

func (s *Store) GetEntry(ctx context.Context, id int64) (*models.Entry, error) {
	var row models.Entry
	if err := s.DB.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) UserEntries(ctx context.Context, userID int64, limit, offset int) ([]models.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Entry
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertEntity creates or reuses the entity row for (userID, name, type).
// The name is lowercased and trimmed before storage so repeated mentions
// collapse to a single row; calling twice returns the same identifier.
func (s *Store) UpsertEntity(ctx context.Context, userID int64, name, entityType string, attributes map[string]any) (*models.Entity, error) {
	if s == nil || s.DB == nil {
		return nil, fmt.Errorf("nil store")
	}
	name = strings.ToLower(strings.TrimSpace(name))
	entityType = strings.TrimSpace(entityType)
	if name == "" {
		return nil, fmt.Errorf("empty entity name")
	}
	if entityType == "" {
		entityType = models.EntityUnknown
	}

	row := models.Entity{
		UserID:    userID,
		Name:      name,
		Type:      entityType,
		CreatedAt: s.now().Unix(),
	}
	if len(attributes) > 0 {
		b, err := json.Marshal(attributes)
		if err != nil {
			return nil, fmt.Errorf("marshal entity attributes: %w", err)
		}
		attrs := string(b)
		row.Attributes = &attrs
	}

	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "name"},
				{Name: "type"},
			},
			DoNothing: true,
		}).
		Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("upsert entity: %w", err)
	}
	// DoNothing leaves ID zero when the row already existed; read it back.
	if row.ID == 0 {
		var existing models.Entity
		err := s.DB.WithContext(ctx).
			Where("user_id = ? AND name = ? AND type = ?", userID, name, entityType).
			First(&existing).Error
		if err != nil {
			return nil, fmt.Errorf("lookup entity after upsert: %w", err)
		}
		return &existing, nil
	}
	return &row, nil
}

// UpsertTag mirrors UpsertEntity for (userID, name).
func (s *Store) UpsertTag(ctx context.Context, userID int64, name string) (*models.Tag, error) {
	if s == nil || s.DB == nil {
		return nil, fmt.Errorf("nil store")
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("empty tag name")
	}
	row := models.Tag{
		UserID:    userID,
		Name:      name,
		CreatedAt: s.now().Unix(),
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "name"}},
			DoNothing: true,
		}).
		Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("upsert tag: %w", err)
	}
	if row.ID == 0 {
		var existing models.Tag
		err := s.DB.WithContext(ctx).
			Where("user_id = ? AND name = ?", userID, name).
			First(&existing).Error
		if err != nil {
			return nil, fmt.Errorf("lookup tag after upsert: %w", err)
		}
		return &existing, nil
	}
	return &row, nil
}

// LinkEntryEntity records a mention link. Duplicate links are no-ops.
func (s *Store) LinkEntryEntity(ctx context.Context, entryID, entityID int64, relationType string, confidence float64) error {
	if relationType == "" {
		relationType = "mentioned"
	}
	row := models.EntryEntity{
		EntryID:      entryID,
		EntityID:     entityID,
		RelationType: relationType,
		Confidence:   confidence,
	}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (s *Store) LinkEntryTag(ctx context.Context, entryID, tagID int64) error {
	row := models.EntryTag{EntryID: entryID, TagID: tagID}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (s *Store) UserEntities(ctx context.Context, userID int64, entityType string) ([]models.Entity, error) {
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if entityType != "" {
		q = q.Where("type = ?", entityType).Order("name ASC")
	} else {
		q = q.Order("type ASC, name ASC")
	}
	var rows []models.Entity
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AddReminder creates an active reminder. Exactly one of triggerAt /
// triggerCondition may be nil; when resolution failed the raw phrase is
// kept in triggerCondition.
func (s *Store) AddReminder(ctx context.Context, userID int64, text string, triggerAt *time.Time, triggerCondition string, entryID *int64) (*models.Reminder, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty reminder text")
	}
	row := models.Reminder{
		UserID:    userID,
		Text:      text,
		EntryID:   entryID,
		Status:    models.ReminderActive,
		CreatedAt: s.now().Unix(),
	}
	if triggerAt != nil {
		ts := triggerAt.UnixMilli()
		row.TriggerAt = &ts
	}
	if c := strings.TrimSpace(triggerCondition); c != "" {
		row.TriggerCondition = &c
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}
	return &row, nil
}

// ActiveReminders returns a user's active reminders ordered by trigger time.
// Pass userID 0 for all users (scheduler rehydration).
func (s *Store) ActiveReminders(ctx context.Context, userID int64) ([]models.Reminder, error) {
	q := s.DB.WithContext(ctx).Where("status = ?", models.ReminderActive)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var rows []models.Reminder
	if err := q.Order("trigger_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CompleteReminder transitions active→completed and reports whether this
// call made the transition. A second call returns false, which is how
// at-most-once delivery accounting is kept.
func (s *Store) CompleteReminder(ctx context.Context, id int64) (bool, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.Reminder{}).
		Where("id = ? AND status = ?", id, models.ReminderActive).
		Update("status", models.ReminderCompleted)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

type Stats struct {
	Entries         int64
	Entities        int64
	ActiveReminders int64
}

func (s *Store) UserStats(ctx context.Context, userID int64) (Stats, error) {
	var st Stats
	if err := s.DB.WithContext(ctx).Model(&models.Entry{}).Where("user_id = ?", userID).Count(&st.Entries).Error; err != nil {
		return Stats{}, err
	}
	if err := s.DB.WithContext(ctx).Model(&models.Entity{}).Where("user_id = ?", userID).Count(&st.Entities).Error; err != nil {
		return Stats{}, err
	}
	err := s.DB.WithContext(ctx).Model(&models.Reminder{}).
		Where("user_id = ? AND status = ?", userID, models.ReminderActive).
		Count(&st.ActiveReminders).Error
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

// LastSeenVersion returns the release marker for a user, or "" when the
// user has never been shown an announcement.
func (s *Store) LastSeenVersion(ctx context.Context, userID int64) (string, error) {
	var row models.UserRelease
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.LastVersion, nil
}

func (s *Store) SetLastSeenVersion(ctx context.Context, userID int64, version string) error {
	row := models.UserRelease{
		UserID:      userID,
		LastVersion: version,
		UpdatedAt:   s.now().Unix(),
	}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"last_version": version, "updated_at": row.UpdatedAt}),
		}).
		Create(&row).Error
}
