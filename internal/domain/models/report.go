// internal/domain/models/report.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report statuses
const (
	ReportOpen      = "open"
	ReportResolved  = "resolved"
	ReportDismissed = "dismissed"
)

// Report report reasons
const (
	ReasonSpam       = "spam"
	ReasonAbuse      = "abuse"
	ReasonOffTopic   = "off_topic"
	ReasonOther      = "other"
	ReasonImpersonal = "impersonation"
)

// Report is a user-filed complaint about a piece of content, worked by
// moderators. CaseNumber is a stable external reference that survives
// document ID changes across exports.
type Report struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CaseNumber string             `bson:"case_number" json:"case_number"` // uuid

	TargetType TargetType `bson:"target_type" json:"target_type"`
	TargetID   string     `bson:"target_id" json:"target_id"`

	ReporterID   primitive.ObjectID `bson:"reporter_id" json:"reporter_id"`
	ReporterName string             `bson:"reporter_name" json:"reporter_name"`
	Reason       string             `bson:"reason" json:"reason"`
	Details      string             `bson:"details,omitempty" json:"details,omitempty"`

	Status       string              `bson:"status" json:"status"` // open, resolved, dismissed
	ResolverID   *primitive.ObjectID `bson:"resolver_id,omitempty" json:"resolver_id,omitempty"`
	ResolverNote string              `bson:"resolver_note,omitempty" json:"resolver_note,omitempty"`
	ResolvedAt   *time.Time          `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// IsValidReportReason checks a report reason against the known set.
func IsValidReportReason(reason string) bool {
	switch reason {
	case ReasonSpam, ReasonAbuse, ReasonOffTopic, ReasonImpersonal, ReasonOther:
		return true
	}
	return false
}
