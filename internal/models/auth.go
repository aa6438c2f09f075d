package models

import "time"

// LoginRequest defines the structure for login requests
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest defines the structure for customer registration
type RegisterRequest struct {
	FirstName   string    `json:"firstName" binding:"required"`
	LastName    string    `json:"lastName" binding:"required"`
	Email       string    `json:"email" binding:"required,email"`
	Password    string    `json:"password" binding:"required,min=6"`
	Address     Address   `json:"address" binding:"required"`
	PhoneNumber string    `json:"phoneNumber" binding:"required"`
	DateOfBirth time.Time `json:"dateOfBirth"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
