package school

import "time"

// Child represents a child linked to a parent account.
type Child struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Grade     string    `gorm:"size:50;not null" json:"grade"`
	School    string    `gorm:"size:100;not null" json:"school"`
	ParentID  string    `gorm:"size:36;index;not null" json:"parentId"`
	Avatar    string    `gorm:"size:255" json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for the Child model.
func (Child) TableName() string {
	return "children"
}

// Class represents a school class that parents can be grouped around.
type Class struct {
	ID          string    `gorm:"primarykey;size:36" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Grade       string    `gorm:"size:50;not null" json:"grade"`
	School      string    `gorm:"size:100;not null" json:"school"`
	Teacher     string    `gorm:"size:100;not null" json:"teacher"`
	Description string    `gorm:"size:500" json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName returns the table name for the Class model.
func (Class) TableName() string {
	return "classes"
}
