package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Firstname string    `gorm:"not null" json:"firstname"`
	Lastname  string    `gorm:"not null" json:"lastname"`
	Email     string    `gorm:"uniqueIndex:idx_users_email;not null" json:"email"`
	Username  *string   `gorm:"uniqueIndex:idx_users_username" json:"username,omitempty"`
	Phone     string    `gorm:"uniqueIndex:idx_users_phone;not null" json:"phone"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// File is the metadata row of one uploaded object; the bytes live in the object store.
type File struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Name         string `gorm:"not null"`
	PublicID     string `gorm:"not null"`
	URL          string `gorm:"not null"`
	Size         int64  `gorm:"not null"`
	Type         string `gorm:"not null"`
	Format       string
	ResourceType string `gorm:"not null"`
	Width        *int
	Height       *int
	UserID       string    `gorm:"type:uuid;not null;index:idx_files_user_uploaded,priority:1"`
	UploadedAt   time.Time `gorm:"not null;index:idx_files_user_uploaded,priority:2"`
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.UploadedAt.IsZero() {
		f.UploadedAt = tx.NowFunc()
	}
	return nil
}
