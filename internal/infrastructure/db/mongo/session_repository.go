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

const sessionCollection = "auth_sessions"

type SessionRepository struct {
	coll *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{coll: db.Collection(sessionCollection)}
}

type sessionDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	UserID       primitive.ObjectID `bson:"user_id"`
	AuthID       string             `bson:"auth_id"`
	AuthorizerID string             `bson:"authorizer_id"`
	GrantType    string             `bson:"grant_type"`
	SessionType  string             `bson:"session_type"`
	Checksum     string             `bson:"checksum"`
	ExpiresAt    time.Time          `bson:"expires_at"`
	CreatedAt    time.Time          `bson:"created_at"`
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.AuthSession) (*domain.AuthSession, error) {
	userOID, err := primitive.ObjectIDFromHex(session.UserID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	doc := sessionDoc{
		ID:           primitive.NewObjectID(),
		UserID:       userOID,
		AuthID:       session.AuthID,
		AuthorizerID: session.AuthorizerID,
		GrantType:    string(session.GrantType),
		SessionType:  string(session.SessionType),
		Checksum:     session.Checksum,
		ExpiresAt:    session.ExpiresAt,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// The unique checksum index fired: the same issuance material was
			// recorded before. Reject rather than surface an internal error.
			return nil, domain.ErrSessionReplayed
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*domain.AuthSession, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}
	var doc sessionDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return doc.toDomain(), nil
}

// DeleteByAuthID revokes every session anchored to one auth entity. Used when
// a credential is removed so its outstanding tokens die with it.
func (r *SessionRepository) DeleteByAuthID(ctx context.Context, authID string) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"auth_id": authID})
	if err != nil {
		return fmt.Errorf("delete sessions by auth entity: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	_, err = r.coll.DeleteMany(ctx, bson.M{"user_id": userOID})
	if err != nil {
		return fmt.Errorf("delete sessions for user: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique checksum index plus a TTL reaper so Mongo
// drops expired sessions on its own.
func (r *SessionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "checksum", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "auth_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	return err
}

func (d *sessionDoc) toDomain() *domain.AuthSession {
	return &domain.AuthSession{
		ID:           d.ID.Hex(),
		UserID:       d.UserID.Hex(),
		AuthID:       d.AuthID,
		AuthorizerID: d.AuthorizerID,
		GrantType:    domain.GrantType(d.GrantType),
		SessionType:  domain.SessionType(d.SessionType),
		Checksum:     d.Checksum,
		ExpiresAt:    d.ExpiresAt,
		CreatedAt:    d.CreatedAt,
	}
}
