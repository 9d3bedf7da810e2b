// internal/app/store/reports/store.go
package reports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/unihub-ua/unihub/internal/app/store/storeutil"
	"github.com/unihub-ua/unihub/internal/app/system/normalize"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// ErrAlreadyDecided is returned when resolving a report that is not open.
var ErrAlreadyDecided = errors.New("report already decided")

// Store provides content report persistence operations.
type Store struct {
	c *mongo.Collection
}

// New creates a reports store backed by db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("reports")}
}

// EnsureIndexes creates the indexes the reports collection relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "case_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_report_case_number"),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_reports_status_time"),
		},
		{
			Keys: bson.D{
				{Key: "target_type", Value: 1},
				{Key: "target_id", Value: 1},
			},
			Options: options.Index().SetName("idx_reports_target"),
		},
	})
	if err != nil {
		zap.L().Error("failed to create report indexes", zap.Error(err))
		return err
	}
	return nil
}

// CreateInput holds the fields for filing a report.
type CreateInput struct {
	TargetType   models.TargetType
	TargetID     string
	ReporterID   primitive.ObjectID
	ReporterName string
	Reason       string
	Details      string
}

// Create files a new report with a generated case number.
func (s *Store) Create(ctx context.Context, in CreateInput) (*models.Report, error) {
	r := &models.Report{
		ID:           primitive.NewObjectID(),
		CaseNumber:   uuid.NewString(),
		TargetType:   models.TargetType(normalize.TargetType(string(in.TargetType))),
		TargetID:     in.TargetID,
		ReporterID:   in.ReporterID,
		ReporterName: in.ReporterName,
		Reason:       in.Reason,
		Details:      in.Details,
		Status:       models.ReportOpen,
		CreatedAt:    time.Now(),
	}
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetByID returns the report with the given id, or nil if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	var r models.Report
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetByCaseNumber returns the report with the given case number,
// or nil if not found.
func (s *Store) GetByCaseNumber(ctx context.Context, caseNumber string) (*models.Report, error) {
	var r models.Report
	err := s.c.FindOne(ctx, bson.M{"case_number": caseNumber}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Decide moves an open report to resolved or dismissed. The status filter
// makes concurrent decisions race-safe; the loser gets ErrAlreadyDecided.
func (s *Store) Decide(ctx context.Context, id, resolverID primitive.ObjectID, status, note string) error {
	if status != models.ReportResolved && status != models.ReportDismissed {
		return errors.New("invalid report decision: " + status)
	}
	now := time.Now()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.ReportOpen},
		bson.M{"$set": bson.M{
			"status":        status,
			"resolver_id":   resolverID,
			"resolver_note": note,
			"resolved_at":   now,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		existing, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return mongo.ErrNoDocuments
		}
		return ErrAlreadyDecided
	}
	return nil
}

// Filter narrows Find and Count.
type Filter struct {
	Status     string
	TargetType models.TargetType
	TargetID   string
}

func (f Filter) toQuery() bson.M {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = normalize.Status(f.Status)
	}
	if f.TargetType != "" {
		q["target_type"] = models.TargetType(normalize.TargetType(string(f.TargetType)))
	}
	if f.TargetID != "" {
		q["target_id"] = f.TargetID
	}
	return q
}

// Find returns reports matching the filter, newest first.
func (s *Store) Find(ctx context.Context, f Filter, limit, page int) ([]models.Report, error) {
	limit, skip := storeutil.Paginate(limit, page)
	cur, err := s.c.Find(ctx, f.toQuery(), options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Report
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of reports matching the filter.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.toQuery())
}

// CountOpenForTarget returns the number of open reports on one target.
func (s *Store) CountOpenForTarget(ctx context.Context, targetType models.TargetType, targetID string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"status":      models.ReportOpen,
		"target_type": targetType,
		"target_id":   targetID,
	})
}
