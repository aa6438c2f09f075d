package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure UserRepository implements the interface
var _ repositories.UserRepository = (*UserRepository)(nil)

// UserRepository handles MongoDB operations for User
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

// EnsureIndexes creates the unique email index
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	_, err := r.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicate
	}
	return err
}

// FindByEmail finds a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update replaces the profile fields of an existing user. Points are owned
// by AdjustPoints and are not written here.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	update := bson.M{"$set": bson.M{
		"password":       user.Password,
		"firstName":      user.FirstName,
		"lastName":       user.LastName,
		"address":        user.Address,
		"phoneNumber":    user.PhoneNumber,
		"dateOfBirth":    user.DateOfBirth,
		"profilePicture": user.ProfilePicture,
		"updatedAt":      user.UpdatedAt,
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"email": user.Email}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// AdjustPoints atomically adds delta to the user's balance. Debits only match
// when the balance covers them, so the stored balance never goes negative.
func (r *UserRepository) AdjustPoints(ctx context.Context, email string, delta int) (*models.User, error) {
	filter := bson.M{"email": email}
	if delta < 0 {
		filter["points"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"points": delta},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if delta < 0 {
			// Distinguish a missing user from a short balance
			if _, findErr := r.FindByEmail(ctx, email); findErr != nil {
				return nil, findErr
			}
			return nil, repositories.ErrInsufficientBalance
		}
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByRole lists users holding the given role
func (r *UserRepository) FindByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"role": role})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}
