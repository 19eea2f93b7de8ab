package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/codewandler/userd-go/core/errs"
	"github.com/codewandler/userd-go/core/user"
)

const userCollection = "users"

// UserRepository implements user.Repository on a MongoDB collection.
type UserRepository struct {
	coll *mongo.Collection
	log  *slog.Logger
}

// RepositoryOption configures a UserRepository.
type RepositoryOption func(*UserRepository)

// WithLogger sets the repository logger.
func WithLogger(log *slog.Logger) RepositoryOption {
	return func(r *UserRepository) { r.log = log }
}

func NewUserRepository(db *mongo.Database, opts ...RepositoryOption) *UserRepository {
	r := &UserRepository{
		coll: db.Collection(userCollection),
		log:  slog.Default().With(slog.String("component", "user-repository")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureIndexes creates the unique email index. Run once at startup.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

// CreateOne inserts a new user at version 0. A colliding id or email
// fails with USER_DUPLICATED.
func (r *UserRepository) CreateOne(ctx context.Context, u *user.User) error {
	doc := newUserDocument(u.Snapshot())
	doc.Version = 0

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.NewUserDuplicated()
		}
		return fmt.Errorf("insert user %s: %w", doc.ID, err)
	}
	r.log.DebugContext(ctx, "user inserted", slog.String("user_id", doc.ID))
	return nil
}

// UpdateOne persists the aggregate conditional on the stored version
// matching the loaded one. The version is bumped server-side via $inc;
// a filter miss means someone else won the race.
func (r *UserRepository) UpdateOne(ctx context.Context, u *user.User) error {
	s := u.Snapshot()

	filter := bson.M{"_id": s.ID.String(), "version": s.Version}
	update := bson.M{
		"$set": bson.M{
			"name":                s.Name,
			"email":               s.Email,
			"profile_picture_url": s.ProfilePictureURL,
			"updated_at":          s.UpdatedAt,
			"deleted_at":          s.DeletedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	err := r.coll.FindOneAndUpdate(ctx, filter, update).Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("user %s at version %d: %w", s.ID, s.Version, errs.ErrOptimisticLock)
	case mongo.IsDuplicateKeyError(err):
		return errs.NewUserDuplicated()
	default:
		return fmt.Errorf("update user %s: %w", s.ID, err)
	}
}

// FindByID returns (nil, nil) when no user exists under id.
func (r *UserRepository) FindByID(ctx context.Context, id user.ID) (*user.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	switch {
	case err == nil:
		return user.Load(doc.snapshot()), nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, nil
	default:
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
}

var _ user.Repository = (*UserRepository)(nil)
