package models

const (
	SourceVoice = "voice"
	SourceText  = "text"
)

// Entry is one captured user utterance. Rows are immutable after creation;
// metadata is enriched once, at creation time.
type Entry struct {
	ID            int64   `gorm:"column:id;primaryKey;autoIncrement"`
	UserID        int64   `gorm:"column:user_id;not null;index:idx_entries_user_created,priority:1"`
	OriginalText  string  `gorm:"column:original_text;type:text;not null"`
	ProcessedText *string `gorm:"column:processed_text;type:text"`
	SourceType    string  `gorm:"column:source_type;type:text;not null"`
	AudioFilePath *string `gorm:"column:audio_file_path;type:text"`
	Metadata      *string `gorm:"column:metadata;type:text"`
	CreatedAt     int64   `gorm:"column:created_at;not null;index:idx_entries_user_created,priority:2"`
}

func (Entry) TableName() string { return "entries" }
