package model

import "time"

// Category groups tasks by area (work, health, study, etc.). Categories
// are user-defined; built-in ones live in SystemCategory.
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"uniqueIndex:idx_user_category_name,priority:1"`
	Name      string `gorm:"uniqueIndex:idx_user_category_name,priority:2"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Tasks     []Task `gorm:"foreignKey:CategoryID"`
}

// SystemCategory is a built-in grouping shared by all users.
type SystemCategory struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex"`
	Icon string
}
