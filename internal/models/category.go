package models

// Category groups tracked services for filtering and reporting. Categories are
// visible to every user; the creator is recorded for auditing only.
type Category struct {
	BaseModel

	UserID      string `gorm:"type:uuid;index" json:"user_id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Color       string `gorm:"type:varchar(16);default:'#06b6d4'" json:"color"`
	Icon        string `gorm:"type:varchar(64);default:'folder'" json:"icon"`
}
