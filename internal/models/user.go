package models

// User represents an account that can send and receive messages.
type User struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Username     string `json:"username" gorm:"uniqueIndex;type:varchar(80);not null" validate:"required,min=3,max=80"`
	Password     string `json:"-" gorm:"type:varchar(255);not null" validate:"required,min=6"` // bcrypt hash, never serialized
	HasPrivilege bool   `json:"has_privilege" gorm:"not null;default:false"`
	Email        string `json:"email" gorm:"uniqueIndex;type:varchar(120);not null" validate:"required,email"`
}
