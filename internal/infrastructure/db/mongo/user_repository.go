package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AppChainLabs/authd/internal/core/domain"
)

const userCollection = "users"

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(userCollection)}
}

type userDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Username        string             `bson:"username,omitempty"`
	Email           string             `bson:"email,omitempty"`
	DisplayName     string             `bson:"display_name,omitempty"`
	Avatar          string             `bson:"avatar,omitempty"`
	Roles           []string           `bson:"roles"`
	IsEmailVerified bool               `bson:"is_email_verified"`
	IsEnabled       bool               `bson:"is_enabled"`
	OTPSecret       string             `bson:"otp_secret,omitempty"`
	CreatedAt       time.Time          `bson:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	now := time.Now().UTC()
	doc := userDoc{
		ID:              primitive.NewObjectID(),
		Username:        user.Username,
		Email:           user.Email,
		DisplayName:     user.DisplayName,
		Avatar:          user.Avatar,
		Roles:           rolesOut(user.Roles),
		IsEmailVerified: user.IsEmailVerified,
		IsEnabled:       user.IsEnabled,
		OTPSecret:       user.OTPSecret,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrIdentifierTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmailOrUsername(ctx context.Context, query string) (*domain.User, error) {
	if query == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": query},
		bson.M{"username": query},
	}})
}

func (r *UserRepository) SetEmailVerified(ctx context.Context, id string, verified bool) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"is_email_verified": verified,
		"updated_at":        time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// EnsureIndexes creates the uniqueness indexes login resolution relies on.
// Email and username are sparse-unique: absent values never collide.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (d *userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:              d.ID.Hex(),
		Username:        d.Username,
		Email:           d.Email,
		DisplayName:     d.DisplayName,
		Avatar:          d.Avatar,
		Roles:           rolesIn(d.Roles),
		IsEmailVerified: d.IsEmailVerified,
		IsEnabled:       d.IsEnabled,
		OTPSecret:       d.OTPSecret,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func rolesOut(roles []domain.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func rolesIn(roles []string) []domain.Role {
	out := make([]domain.Role, len(roles))
	for i, r := range roles {
		out[i] = domain.Role(r)
	}
	return out
}
