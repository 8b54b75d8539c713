package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReviewType distinguishes how a testimonial was captured.
type ReviewType string

const (
	ReviewTypeVideo ReviewType = "video"
	ReviewTypeAudio ReviewType = "audio"
	ReviewTypeText  ReviewType = "text"
)

// IsValid reports whether t is one of the supported review types.
func (t ReviewType) IsValid() bool {
	return t == ReviewTypeVideo || t == ReviewTypeAudio || t == ReviewTypeText
}

// HasMedia reports whether reviews of this type carry a binary asset.
func (t ReviewType) HasMedia() bool {
	return t == ReviewTypeVideo || t == ReviewTypeAudio
}

// ReviewStatus is the moderation state of a review.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusApproved ReviewStatus = "approved"
	StatusRejected ReviewStatus = "rejected"
	StatusHidden   ReviewStatus = "hidden"
	StatusDeleted  ReviewStatus = "deleted"
)

// Review is the aggregate root of the testimonial pipeline.
// It owns the moderation status, the consent flag and the content fields;
// media reviews additionally own one MediaAsset once their upload completes.
type Review struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BusinessID      primitive.ObjectID `bson:"businessId" json:"businessId"` // Owning tenant; every query filters on this
	Type            ReviewType         `bson:"type" json:"type"`             // Immutable after creation
	Status          ReviewStatus       `bson:"status" json:"status"`
	TextStatus      ReviewStatus       `bson:"textStatus,omitempty" json:"textStatus,omitempty"` // Independent sub-state for written commentary
	Title           string             `bson:"title,omitempty" json:"title,omitempty"`
	BodyText        string             `bson:"bodyText,omitempty" json:"bodyText,omitempty"` // Required iff Type == text
	Rating          int                `bson:"rating,omitempty" json:"rating,omitempty"`     // Optional, 1-5
	ReviewerName    string             `bson:"reviewerName,omitempty" json:"reviewerName,omitempty"`
	ReviewerContact map[string]string  `bson:"reviewerContact,omitempty" json:"reviewerContact,omitempty"`
	ConsentChecked  bool               `bson:"consentChecked" json:"consentChecked"` // Must be true at creation time
	Source          string             `bson:"source,omitempty" json:"source,omitempty"`
	ViewsCount      int64              `bson:"viewsCount" json:"viewsCount"` // Maintained by the analytics collaborator, never by the core
	SubmittedAt     time.Time          `bson:"submittedAt" json:"submittedAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
	DeletedAt       *time.Time         `bson:"deletedAt,omitempty" json:"-"`
}

// --- Moderation action union ---

// ModerationAction is an operator decision applied to a review.
type ModerationAction string

const (
	ActionApprove ModerationAction = "APPROVE"
	ActionReject  ModerationAction = "REJECT"
	ActionHide    ModerationAction = "HIDE"
	ActionDelete  ModerationAction = "DELETE"
)

// ModerationTarget selects which sub-state the action applies to:
// the review's primary status (media) or the auxiliary text commentary.
type ModerationTarget string

const (
	TargetMedia ModerationTarget = "MEDIA"
	TargetText  ModerationTarget = "TEXT"
)

// ParseModerationAction validates a raw action string against the closed set.
func ParseModerationAction(raw string) (ModerationAction, error) {
	switch ModerationAction(raw) {
	case ActionApprove, ActionReject, ActionHide, ActionDelete:
		return ModerationAction(raw), nil
	}
	return "", fmt.Errorf("unknown moderation action %q", raw)
}

// ParseModerationTarget validates a raw target string. An empty value
// defaults to MEDIA, matching the dashboard's most common call.
func ParseModerationTarget(raw string) (ModerationTarget, error) {
	switch ModerationTarget(raw) {
	case TargetMedia, TargetText:
		return ModerationTarget(raw), nil
	case "":
		return TargetMedia, nil
	}
	return "", fmt.Errorf("unknown moderation target %q", raw)
}

// StatusFor maps an action to the status it assigns. DELETE maps to
// StatusDeleted, although for the MEDIA target the review row is removed
// outright rather than flagged.
func (a ModerationAction) StatusFor() ReviewStatus {
	switch a {
	case ActionApprove:
		return StatusApproved
	case ActionReject:
		return StatusRejected
	case ActionHide:
		return StatusHidden
	default:
		return StatusDeleted
	}
}
