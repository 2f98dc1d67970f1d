package domain

import (
	"time"
)

// User is the account that owns a business phone number. The full user CRUD
// lives in the platform API; the call service only reads the columns it
// needs to route an inbound call.
type User struct {
	ID          string    `json:"id" db:"id" gorm:"column:id;primaryKey"`
	PhoneNumber string    `json:"phone_number" db:"phone_number" gorm:"column:phone_number;unique"`
	Email       string    `json:"email" db:"email" gorm:"column:email"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at" gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Company is the business profile attached to a user.
type Company struct {
	ID           string    `json:"id" db:"id" gorm:"column:id;primaryKey"`
	UserID       string    `json:"user_id" db:"user_id" gorm:"column:user_id;index"`
	BusinessName string    `json:"business_name" db:"business_name" gorm:"column:business_name"`
	Email        string    `json:"email" db:"email" gorm:"column:email"`
	Greeting     string    `json:"greeting,omitempty" db:"greeting" gorm:"column:greeting"`
	CreatedAt    time.Time `json:"created_at" db:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at" gorm:"column:updated_at"`
}

func (Company) TableName() string {
	return "companies"
}

// Service is one bookable offering of a company.
type Service struct {
	ID        string    `json:"id" db:"id" gorm:"column:id;primaryKey"`
	UserID    string    `json:"user_id" db:"user_id" gorm:"column:user_id;index"`
	Name      string    `json:"name" db:"name" gorm:"column:name"`
	Price     float64   `json:"price" db:"price" gorm:"column:price"`
	Active    bool      `json:"active" db:"active" gorm:"column:active"`
	Position  int       `json:"position" db:"position" gorm:"column:position"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"column:updated_at"`
}

func (Service) TableName() string {
	return "services"
}
