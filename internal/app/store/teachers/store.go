// internal/app/store/teachers/store.go
package teachers

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/dalemusser/waffle/pantry/text"

	"github.com/unihub-ua/unihub/internal/app/store/storeutil"
	"github.com/unihub-ua/unihub/internal/app/system/normalize"
	"github.com/unihub-ua/unihub/internal/domain/models"
)

// Store provides teacher profile persistence operations.
type Store struct {
	c *mongo.Collection
}

// New creates a teachers store backed by db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("teachers")}
}

// EnsureIndexes creates the indexes the teachers collection relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "full_name_ci", Value: 1}},
			Options: options.Index().SetName("idx_teachers_name_ci"),
		},
		{
			Keys: bson.D{
				{Key: "faculty", Value: 1},
				{Key: "full_name_ci", Value: 1},
			},
			Options: options.Index().SetName("idx_teachers_faculty_name"),
		},
	})
	if err != nil {
		zap.L().Error("failed to create teacher indexes", zap.Error(err))
		return err
	}
	return nil
}

// CreateInput holds the fields for creating a teacher profile.
type CreateInput struct {
	FullName   string
	Faculty    string
	Department string
	Position   string
	Bio        string
}

// Create inserts a new teacher profile.
func (s *Store) Create(ctx context.Context, in CreateInput) (*models.Teacher, error) {
	now := time.Now()
	name := normalize.Name(in.FullName)
	tch := &models.Teacher{
		ID:         primitive.NewObjectID(),
		FullName:   name,
		FullNameCI: text.Fold(name),
		Faculty:    normalize.Name(in.Faculty),
		Department: normalize.Name(in.Department),
		Position:   normalize.Name(in.Position),
		Bio:        in.Bio,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.c.InsertOne(ctx, tch); err != nil {
		return nil, err
	}
	return tch, nil
}

// UpdateInput holds optional fields for updating a teacher profile.
// Nil pointers leave the stored value unchanged.
type UpdateInput struct {
	FullName   *string
	Faculty    *string
	Department *string
	Position   *string
	Bio        *string
}

// Update applies the non-nil fields of in to the teacher profile.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput) error {
	set := bson.M{"updated_at": time.Now()}
	if in.FullName != nil {
		name := normalize.Name(*in.FullName)
		set["full_name"] = name
		set["full_name_ci"] = text.Fold(name)
	}
	if in.Faculty != nil {
		set["faculty"] = normalize.Name(*in.Faculty)
	}
	if in.Department != nil {
		set["department"] = normalize.Name(*in.Department)
	}
	if in.Position != nil {
		set["position"] = normalize.Name(*in.Position)
	}
	if in.Bio != nil {
		set["bio"] = *in.Bio
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// GetByID returns the teacher with the given id, or nil if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Teacher, error) {
	var tch models.Teacher
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&tch)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tch, nil
}

// Exists reports whether a teacher with the given id exists.
// Used to validate reaction and review targets.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Filter narrows Find and Count.
type Filter struct {
	Faculty string
	Search  string // folded name substring
}

func (f Filter) toQuery() bson.M {
	q := bson.M{}
	if f.Faculty != "" {
		q["faculty"] = normalize.Name(f.Faculty)
	}
	if f.Search != "" {
		q["full_name_ci"] = bson.M{"$regex": text.Fold(f.Search)}
	}
	return q
}

// Find returns teachers matching the filter, sorted by name.
func (s *Store) Find(ctx context.Context, f Filter, limit, page int) ([]models.Teacher, error) {
	limit, skip := storeutil.Paginate(limit, page)
	cur, err := s.c.Find(ctx, f.toQuery(), options.Find().
		SetSort(bson.D{{Key: "full_name_ci", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Teacher
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of teachers matching the filter.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.toQuery())
}

// Delete removes a teacher profile. Callers are responsible for cascading
// removal of reviews and reactions.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
