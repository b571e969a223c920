package models

// Entity types. The set is closed; extraction rules and the AI categorizer
// both map onto it.
const (
	EntityPerson   = "person"
	EntityPlace    = "place"
	EntityObject   = "object"
	EntityEvent    = "event"
	EntityTask     = "task"
	EntityReminder = "reminder"
	EntityWork     = "work"
	EntityHealth   = "health"
	EntityFinance  = "finance"
	EntityUnknown  = "unclassified"
)

// Entity is a named thing extracted from entries. Names are stored
// lowercased and trimmed, so lookups are case-insensitive by construction.
// (user_id, name, type) is unique: repeated mentions reuse one row.
type Entity struct {
	ID         int64   `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     int64   `gorm:"column:user_id;not null;uniqueIndex:uniq_entity_user_name_type,priority:1"`
	Name       string  `gorm:"column:name;type:text;not null;uniqueIndex:uniq_entity_user_name_type,priority:2"`
	Type       string  `gorm:"column:type;type:text;not null;uniqueIndex:uniq_entity_user_name_type,priority:3"`
	Attributes *string `gorm:"column:attributes;type:text"`
	CreatedAt  int64   `gorm:"column:created_at;not null"`
}

func (Entity) TableName() string { return "entities" }

// Tag is an owner-scoped label, unique on (user_id, name).
type Tag struct {
	ID        int64   `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64   `gorm:"column:user_id;not null;uniqueIndex:uniq_tag_user_name,priority:1"`
	Name      string  `gorm:"column:name;type:text;not null;uniqueIndex:uniq_tag_user_name,priority:2"`
	Color     *string `gorm:"column:color;type:text"`
	CreatedAt int64   `gorm:"column:created_at;not null"`
}

func (Tag) TableName() string { return "tags" }

// EntryEntity links an entry to a mentioned entity. Duplicate links are
// no-ops on insert.
type EntryEntity struct {
	EntryID      int64   `gorm:"column:entry_id;not null;uniqueIndex:uniq_entry_entity,priority:1"`
	EntityID     int64   `gorm:"column:entity_id;not null;uniqueIndex:uniq_entry_entity,priority:2;index:idx_entry_entities_entity"`
	RelationType string  `gorm:"column:relation_type;type:text;not null"`
	Confidence   float64 `gorm:"column:confidence;not null"`
}

func (EntryEntity) TableName() string { return "entry_entities" }

type EntryTag struct {
	EntryID int64 `gorm:"column:entry_id;not null;uniqueIndex:uniq_entry_tag,priority:1"`
	TagID   int64 `gorm:"column:tag_id;not null;uniqueIndex:uniq_entry_tag,priority:2"`
}

func (EntryTag) TableName() string { return "entry_tags" }
