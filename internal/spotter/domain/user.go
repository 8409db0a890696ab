package domain

import (
	"time"

	"github.com/carspotters/spotter/pkg/idx"
)

// DefaultLocation is assigned to accounts registered without an explicit
// location.
const DefaultLocation = "Kigali"

// User is a spotter profile. The authoritative credential record lives at
// the identity provider; this row carries everything the application
// itself knows about the person.
type User struct {
	ID           idx.ID
	FirebaseUID  string
	Name         string
	Email        string
	Phone        string
	Location     string
	Bio          string
	ProfileImage string
	Skills       []string
	CarBrands    []string
	TotalSpots   int
	Reputation   int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserResponse is the wire projection of a User returned inside auth
// responses and on the profile endpoint.
type UserResponse struct {
	ID           string   `json:"id"`
	FirebaseUID  string   `json:"firebaseUid"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone,omitempty"`
	Location     string   `json:"location"`
	Bio          string   `json:"bio,omitempty"`
	ProfileImage string   `json:"profileImage,omitempty"`
	Skills       []string `json:"skills"`
	CarBrands    []string `json:"carBrands"`
	TotalSpots   int      `json:"totalSpots"`
	Reputation   int      `json:"reputation"`
	IsActive     bool     `json:"isActive"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

// Response projects the user onto its wire shape. Slice fields are never
// null on the wire.
func (u User) Response() UserResponse {
	skills := u.Skills
	if skills == nil {
		skills = []string{}
	}
	brands := u.CarBrands
	if brands == nil {
		brands = []string{}
	}
	return UserResponse{
		ID:           u.ID.String(),
		FirebaseUID:  u.FirebaseUID,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		Location:     u.Location,
		Bio:          u.Bio,
		ProfileImage: u.ProfileImage,
		Skills:       skills,
		CarBrands:    brands,
		TotalSpots:   u.TotalSpots,
		Reputation:   u.Reputation,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
