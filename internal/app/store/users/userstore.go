// internal/app/store/users/userstore.go
package users

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

// ErrDuplicateEmail is returned when creating a user whose email already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// Store provides user persistence operations.
type Store struct {
	c *mongo.Collection
}

// New creates a users store backed by db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// EnsureIndexes creates the indexes the users collection relies on.
// The unique email_ci index is what makes Create's duplicate check atomic.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email_ci"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_users_role_status"),
		},
	})
	if err != nil {
		zap.L().Error("failed to create user indexes", zap.Error(err))
		return err
	}
	return nil
}

// CreateInput holds the fields for creating a user.
type CreateInput struct {
	FullName     string
	Email        string
	PasswordHash string
	Role         string
	Status       string
	Faculty      string
	Course       int
}

// Create inserts a new user. The email must be unique (case-insensitive);
// ErrDuplicateEmail is returned when it is not.
func (s *Store) Create(ctx context.Context, in CreateInput) (*models.User, error) {
	now := time.Now()

	role := normalize.Role(in.Role)
	if role == "" {
		role = models.RoleStudent
	}
	status := normalize.Status(in.Status)
	if status == "" {
		status = models.StatusPending
	}

	email := normalize.Email(in.Email)
	name := normalize.Name(in.FullName)

	u := &models.User{
		ID:           primitive.NewObjectID(),
		FullName:     name,
		FullNameCI:   text.Fold(name),
		Email:        email,
		EmailCI:      text.Fold(email),
		PasswordHash: in.PasswordHash,
		Role:         role,
		Status:       status,
		Faculty:      normalize.Name(in.Faculty),
		Course:       in.Course,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if storeutil.IsDup(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

// GetByID returns the user with the given id, or nil if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns the user with the given email (case-insensitive),
// or nil if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"email_ci": text.Fold(normalize.Email(email))}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EmailExists reports whether a user with the given email already exists.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"email_ci": text.Fold(normalize.Email(email))})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateInput holds optional fields for updating a user's profile.
// Nil pointers leave the stored value unchanged.
type UpdateInput struct {
	Faculty *string
	Course  *int
}

// Update applies the non-nil fields of in to the user.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput) error {
	set := bson.M{"updated_at": time.Now()}
	if in.Faculty != nil {
		set["faculty"] = normalize.Name(*in.Faculty)
	}
	if in.Course != nil {
		set["course"] = *in.Course
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

// UpdateFullName changes a user's display name. Used when an approved
// name change request is applied.
func (s *Store) UpdateFullName(ctx context.Context, id primitive.ObjectID, fullName string) error {
	name := normalize.Name(fullName)
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"full_name":    name,
		"full_name_ci": text.Fold(name),
		"updated_at":   time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// UpdatePassword replaces a user's password hash.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash": passwordHash,
		"updated_at":    time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// MarkEmailVerified records a successful email verification and
// activates the account if it was still pending.
func (s *Store) MarkEmailVerified(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"email_verified": true,
			"updated_at":     time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	// Pending accounts become active on verification; disabled accounts stay disabled.
	_, err = s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": bson.M{"status": models.StatusActive}},
	)
	return err
}

// SetStatus changes a user's account status.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":     normalize.Status(status),
		"updated_at": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetRole changes a user's role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"role":       normalize.Role(role),
		"updated_at": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Filter narrows Find and Count.
type Filter struct {
	Role   string
	Status string
	Search string // matches folded full name or email prefix
}

func (f Filter) toQuery() bson.M {
	q := bson.M{}
	if f.Role != "" {
		q["role"] = normalize.Role(f.Role)
	}
	if f.Status != "" {
		q["status"] = normalize.Status(f.Status)
	}
	if f.Search != "" {
		folded := text.Fold(f.Search)
		q["$or"] = bson.A{
			bson.M{"full_name_ci": bson.M{"$regex": folded}},
			bson.M{"email_ci": bson.M{"$regex": "^" + folded}},
		}
	}
	return q
}

// Find returns users matching the filter, newest first.
func (s *Store) Find(ctx context.Context, f Filter, limit, page int) ([]models.User, error) {
	limit, skip := storeutil.Paginate(limit, page)
	cur, err := s.c.Find(ctx, f.toQuery(), options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of users matching the filter.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.toQuery())
}

// CountActiveAdmins returns the number of active admin accounts.
// Used to prevent demoting or disabling the last admin.
func (s *Store) CountActiveAdmins(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"role":   models.RoleAdmin,
		"status": models.StatusActive,
	})
}
