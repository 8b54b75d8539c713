package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Business represents a tenant organization that collects testimonials.
// Every core entity is owned by exactly one business, and every query is
// scoped by its ID.
type Business struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Slug             string             `bson:"slug" json:"slug"` // Unique, immutable, used in public URLs
	AllowTextReviews bool               `bson:"allowTextReviews" json:"allowTextReviews"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
	DeletedAt        *time.Time         `bson:"deletedAt,omitempty" json:"-"` // Soft-delete marker; set means invisible
}
