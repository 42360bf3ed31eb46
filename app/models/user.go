package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	RoleOwner  = "owner"
	RoleMember = "member"
	RoleDPO    = "dpo"
	RoleAdmin  = "admin"

	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusDisabled = "disabled"
)

type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=2,max=150"`
	Email       string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password    string         `gorm:"type:text" json:"-" validate:"required,min=8"`
	Role        string         `gorm:"type:varchar(50);default:'owner'" json:"role" validate:"oneof=owner member dpo admin"`
	Status      string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	Phone       string         `gorm:"type:varchar(30);default:null" json:"phone,omitempty"`
	LastLoginAt *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(name string, email string, password string) (*User, error) {
	// The struct tag only ever sees the bcrypt hash, so the raw password is
	// checked here.
	if err := validator.New().Var(password, "required,min=8"); err != nil {
		return nil, err
	}

	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     name,
		Email:    email,
		Password: pw,
		Role:     RoleOwner,
		Status:   UserStatusActive,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsStaff reports whether the user may access the internal DPO dashboard.
func (u *User) IsStaff() bool {
	return u.Role == RoleDPO || u.Role == RoleAdmin
}
