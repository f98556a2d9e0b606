package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vedantk/habit-tracker/internal/models"
)

var (
	// ErrNotFound means no user document matched the lookup.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateName means the unique name index rejected a create.
	ErrDuplicateName = errors.New("user name already taken")
)

// MongoStore handles user document CRUD in MongoDB. Habits live embedded in
// the user document, so every mutation is a whole-document save.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("users")}
}

// EnsureIndexes creates the unique index on name that backs duplicate-name
// rejection at registration.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}
	return nil
}

// Create inserts a new user document. A name collision yields
// ErrDuplicateName and leaves no record behind.
func (s *MongoStore) Create(ctx context.Context, u *models.User) error {
	_, err := s.col.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateName
	}
	if err != nil {
		return fmt.Errorf("mongo insert user: %w", err)
	}
	return nil
}

// GetByID fetches a user document by its id.
func (s *MongoStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find user: %w", err)
	}
	return &u, nil
}

// GetByName fetches a user document by its unique display name.
func (s *MongoStore) GetByName(ctx context.Context, name string) (*models.User, error) {
	var u models.User
	err := s.col.FindOne(ctx, bson.M{"name": name}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find user: %w", err)
	}
	return &u, nil
}

// List returns all user documents, oldest first.
func (s *MongoStore) List(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo list users: %w", err)
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Save replaces the whole user document. Single-document replacement is
// atomic in MongoDB, which is what keeps the read-modify-write cycle safe
// once the caller serializes access per user id.
func (s *MongoStore) Save(ctx context.Context, u *models.User) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return fmt.Errorf("mongo save user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
