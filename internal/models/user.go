package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role identifies what a user may do on the marketplace
type Role string

const (
	RoleCustomer  Role = "CUSTOMER"
	RoleCollector Role = "COLLECTOR"
)

// Address is a postal address used by users and collection requests
type Address struct {
	Street     string `bson:"street" json:"street"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
}

// SameCity reports whether both addresses are in the same city, ignoring case and surrounding spaces
func (a Address) SameCity(other Address) bool {
	return strings.EqualFold(strings.TrimSpace(a.City), strings.TrimSpace(other.City))
}

// User represents a customer or collector account.
// Email is the identity key.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email          string             `bson:"email" json:"email"`
	Password       string             `bson:"password" json:"-"` // bcrypt hash, never rendered
	FirstName      string             `bson:"firstName" json:"firstName"`
	LastName       string             `bson:"lastName" json:"lastName"`
	Address        Address            `bson:"address" json:"address"`
	PhoneNumber    string             `bson:"phoneNumber" json:"phoneNumber"`
	DateOfBirth    time.Time          `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	ProfilePicture string             `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	Role           Role               `bson:"role" json:"role"`
	Points         int                `bson:"points" json:"points"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsCollector reports whether the user is a collector
func (u *User) IsCollector() bool {
	return u != nil && u.Role == RoleCollector
}

// IsCustomer reports whether the user is a customer
func (u *User) IsCustomer() bool {
	return u != nil && u.Role == RoleCustomer
}

// Clone returns a copy of the user without the password hash
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Password = ""
	return &c
}

// NormalizeEmail lower-cases and trims an email so it can be used as a key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ProfilePatch lists the user fields a profile update may change.
// Nil fields are left untouched.
type ProfilePatch struct {
	FirstName      *string    `json:"firstName,omitempty"`
	LastName       *string    `json:"lastName,omitempty"`
	Address        *Address   `json:"address,omitempty"`
	PhoneNumber    *string    `json:"phoneNumber,omitempty"`
	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty"`
	ProfilePicture *string    `json:"profilePicture,omitempty"`
}

// Apply merges the patch into a copy of the user. Email, role, points and
// password are never touched.
func (p ProfilePatch) Apply(u User) User {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.DateOfBirth != nil {
		u.DateOfBirth = *p.DateOfBirth
	}
	if p.ProfilePicture != nil {
		u.ProfilePicture = *p.ProfilePicture
	}
	return u
}
