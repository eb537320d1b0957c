package db_models

import (
	"github.com/google/uuid"
)

// Ad is the listing catalog row. The marketplace CRUD side owns this table;
// the promotion core only ever reads id, owner and category from it.
type Ad struct {
	BaseModel
	OwnerID  uuid.UUID `gorm:"index;not null"`
	Category string    `gorm:"index;not null"` // e.g. "automobili", "nekretnine"
	Title    string
}

func (Ad) TableName() string { return "ads" }
