package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/password"
)

const (
	PurposeLogin          = "login"
	PurposeForgotPassword = "forgot_password"
)

type User struct {
	ID           uuid.UUID `gorm:"primaryKey"               json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	FirstName    string    `gorm:"not null"                 json:"firstName"`
	LastName     string    `gorm:"not null"                 json:"lastName"`
	Username     string    `gorm:"index"                    json:"username"`
	IsUser       bool      `gorm:"not null"                 json:"isUser"`
	IsAdmin      bool      `gorm:"not null"                 json:"isAdmin"`
	IsMerchant   bool      `gorm:"not null"                 json:"isMerchant"`
	IsSuper      bool      `gorm:"not null"                 json:"isSuper"`
	IsGuest      bool      `gorm:"not null"                 json:"isGuest"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// Password is write-only: set it and save, the hook stores the hash.
	Password string `gorm:"-" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Password == "" {
		return nil
	}
	h, err := password.Hash(u.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = h
	u.Password = ""
	return nil
}

func (u *User) CheckPassword(plain string) bool {
	if u.PasswordHash == "" || plain == "" {
		return false
	}
	return password.Compare(u.PasswordHash, plain)
}

// Role collapses the flags into the single claim carried by auth tokens.
func (u *User) Role() string {
	switch {
	case u.IsSuper:
		return "super"
	case u.IsAdmin:
		return "admin"
	case u.IsMerchant:
		return "merchant"
	case u.IsGuest && !u.IsUser:
		return "guest"
	default:
		return "user"
	}
}

type Token struct {
	ID        uuid.UUID `gorm:"primaryKey"                json:"id"`
	UserID    uuid.UUID `gorm:"index;not null"            json:"user"`
	Token     string    `gorm:"not null"                  json:"token"`
	Purpose   string    `gorm:"index;not null"            json:"purpose"`
	ExpiresAt time.Time `gorm:"not null"                  json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *Token) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (Token) TableName() string {
	return "tokens"
}
