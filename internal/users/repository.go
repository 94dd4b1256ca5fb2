package users

import (
	"context"
	"fmt"
	"regexp"

	"github.com/b2cuseradmin/useradmin/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository is the storage port behind the user directory.
// Get returns (nil, nil) for an unknown objectId; Replace and Delete return ErrNotFound.
type Repository interface {
	Get(ctx context.Context, objectID string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	SearchEmail(ctx context.Context, pattern string) ([]models.User, error)
	Insert(ctx context.Context, u *models.User) error
	Replace(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, objectID string) error
}

// MongoRepository stores users in a MongoDB collection keyed by objectId (_id).
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository creates a new repository for the given collection
func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Get(ctx context.Context, objectID string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": objectID}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("mongo find user: %w", err)
	}
	return &u, nil
}

func (r *MongoRepository) List(ctx context.Context) ([]models.User, error) {
	return r.find(ctx, bson.M{})
}

// SearchEmail matches the pattern as a case-insensitive substring of the email.
func (r *MongoRepository) SearchEmail(ctx context.Context, pattern string) ([]models.User, error) {
	filter := bson.M{"email": primitive.Regex{Pattern: regexp.QuoteMeta(pattern), Options: "i"}}
	return r.find(ctx, filter)
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "email", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find users: %w", err)
	}
	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo decode users: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) Insert(ctx context.Context, u *models.User) error {
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrConflict, u.ObjectID)
		}
		return fmt.Errorf("mongo insert user: %w", err)
	}
	return nil
}

func (r *MongoRepository) Replace(ctx context.Context, u *models.User) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": u.ObjectID}, u)
	if err != nil {
		return fmt.Errorf("mongo replace user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, objectID string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("mongo delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
