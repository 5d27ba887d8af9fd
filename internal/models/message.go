package models

import "time"

// Message is a single note from one user to another. The read flag only
// ever moves from false to true; subject and body are immutable after
// creation.
type Message struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Subject      string    `json:"subject" gorm:"type:varchar(80);not null" validate:"required,max=80"`
	Body         string    `json:"body" gorm:"type:text;not null" validate:"required"`
	Read         bool      `json:"read" gorm:"not null;default:false"`
	CreationDate time.Time `json:"creation_date" gorm:"not null"`

	SentBy    uint `json:"sent_by" gorm:"not null;index"`
	Recipient uint `json:"recipient" gorm:"not null;index"`

	// Associations so AutoMigrate emits the foreign key constraints.
	Sender   User `json:"-" gorm:"foreignKey:SentBy"`
	Receiver User `json:"-" gorm:"foreignKey:Recipient"`
}
