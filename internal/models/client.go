package models

import "time"

type Client struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:150;not null" json:"name"`
	Phone          string    `gorm:"size:40" json:"phone,omitempty"`
	Email          string    `gorm:"size:150" json:"email,omitempty"`
	Identification string    `gorm:"size:40;uniqueIndex" json:"identification"`
	Address        string    `gorm:"size:255" json:"address,omitempty"`
	City           string    `gorm:"size:100" json:"city,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type Vehicle struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	ClientID         uint       `gorm:"index;not null" json:"client_id"`
	Plate            string     `gorm:"size:12;uniqueIndex;not null" json:"plate"`
	Brand            string     `gorm:"size:60" json:"brand,omitempty"`
	Model            string     `gorm:"size:60" json:"model,omitempty"`
	Year             int        `json:"year,omitempty"`
	Displacement     int        `json:"displacement,omitempty"`
	Color            string     `gorm:"size:30" json:"color,omitempty"`
	Mileage          int        `json:"mileage,omitempty"`
	InsuranceExpires *time.Time `json:"insurance_expires,omitempty"`
	InspectionDue    *time.Time `json:"inspection_due,omitempty"`
	Active           bool       `gorm:"not null;default:true" json:"active"`
	CreatedAt        time.Time  `json:"created_at"`
}

type Mechanic struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	Specialty string    `gorm:"size:100" json:"specialty,omitempty"`
	Phone     string    `gorm:"size:40" json:"phone,omitempty"`
	Email     string    `gorm:"size:150" json:"email,omitempty"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	UserID    *uint     `gorm:"uniqueIndex" json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
