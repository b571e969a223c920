package models

const (
	ReminderActive    = "active"
	ReminderCompleted = "completed"
)

// Reminder is a scheduled future action. TriggerAt is the trigger time in
// unix milliseconds; it is nil when the trigger phrase could not be
// resolved to a timestamp, and TriggerCondition then keeps the raw phrase.
// Rows are never deleted: completed reminders remain as a historical
// record.
type Reminder struct {
	ID               int64   `gorm:"column:id;primaryKey;autoIncrement"`
	UserID           int64   `gorm:"column:user_id;not null;index:idx_reminders_user_status,priority:1"`
	Text             string  `gorm:"column:text;type:text;not null"`
	TriggerAt        *int64  `gorm:"column:trigger_at"`
	TriggerCondition *string `gorm:"column:trigger_condition;type:text"`
	EntryID          *int64  `gorm:"column:entry_id"`
	Status           string  `gorm:"column:status;type:text;not null;index:idx_reminders_user_status,priority:2"`
	CreatedAt        int64   `gorm:"column:created_at;not null"`
}

func (Reminder) TableName() string { return "reminders" }

// UserRelease records the last product release a user has been shown,
// so announcements go out once per release per user.
type UserRelease struct {
	UserID      int64  `gorm:"column:user_id;primaryKey"`
	LastVersion string `gorm:"column:last_version;type:text;not null"`
	UpdatedAt   int64  `gorm:"column:updated_at;not null"`
}

func (UserRelease) TableName() string { return "user_releases" }
