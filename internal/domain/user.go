package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between dashboard user roles
type Role string

// Define constants for roles
const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// User represents a dashboard operator account belonging to a business.
// Public review submitters are anonymous and have no user record.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BusinessID   primitive.ObjectID `bson:"businessId" json:"businessId"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsOwner() bool {
	return u.Role == RoleOwner
}
