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

const credentialCollection = "auth_entities"

type CredentialRepository struct {
	coll *mongo.Collection
}

func NewCredentialRepository(db *mongo.Database) *CredentialRepository {
	return &CredentialRepository{coll: db.Collection(credentialCollection)}
}

type credentialDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Type      string             `bson:"type"`
	Password  *passwordDoc       `bson:"password,omitempty"`
	Wallet    *walletDoc         `bson:"wallet,omitempty"`
	IsPrimary bool               `bson:"is_primary"`
	CreatedAt time.Time          `bson:"created_at"`
}

type passwordDoc struct {
	Digest    string `bson:"digest"`
	Algorithm string `bson:"algorithm"`
}

type walletDoc struct {
	WalletAddress string `bson:"wallet_address"`
}

func (r *CredentialRepository) Create(ctx context.Context, entity *domain.AuthEntity) (*domain.AuthEntity, error) {
	userOID, err := primitive.ObjectIDFromHex(entity.UserID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	doc := credentialDoc{
		ID:        primitive.NewObjectID(),
		UserID:    userOID,
		Type:      string(entity.Type),
		IsPrimary: entity.IsPrimary,
		CreatedAt: time.Now().UTC(),
	}
	if entity.Password != nil {
		doc.Password = &passwordDoc{Digest: entity.Password.Digest, Algorithm: string(entity.Password.Algorithm)}
	}
	if entity.Wallet != nil {
		doc.Wallet = &walletDoc{WalletAddress: entity.Wallet.WalletAddress}
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Either the wallet-address or the per-user password index fired;
			// both are Conflicts.
			if entity.Wallet != nil {
				return nil, domain.ErrWalletTaken
			}
			return nil, domain.ErrDuplicatePassword
		}
		return nil, fmt.Errorf("insert auth entity: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *CredentialRepository) FindByID(ctx context.Context, id string) (*domain.AuthEntity, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrEntityNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *CredentialRepository) FindByUserAndID(ctx context.Context, userID, id string) (*domain.AuthEntity, error) {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, domain.ErrEntityNotFound
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrEntityNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid, "user_id": userOID})
}

func (r *CredentialRepository) FindByUserAndType(ctx context.Context, userID string, t domain.AuthType) (*domain.AuthEntity, error) {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, domain.ErrEntityNotFound
	}
	return r.findOne(ctx, bson.M{"user_id": userOID, "type": string(t)})
}

func (r *CredentialRepository) FindByWalletAddress(ctx context.Context, address string) (*domain.AuthEntity, error) {
	return r.findOne(ctx, bson.M{"wallet.wallet_address": address})
}

func (r *CredentialRepository) ListForUser(ctx context.Context, userID string) ([]domain.AuthEntity, error) {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userOID})
	if err != nil {
		return nil, fmt.Errorf("list auth entities: %w", err)
	}
	defer cursor.Close(ctx)

	var entities []domain.AuthEntity
	for cursor.Next(ctx) {
		var doc credentialDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode auth entity: %w", err)
		}
		entities = append(entities, *doc.toDomain())
	}
	return entities, cursor.Err()
}

func (r *CredentialRepository) CountForUser(ctx context.Context, userID string) (int64, error) {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return 0, domain.ErrUserNotFound
	}
	return r.coll.CountDocuments(ctx, bson.M{"user_id": userOID})
}

func (r *CredentialRepository) HasPrimary(ctx context.Context, userID string) (bool, error) {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, domain.ErrUserNotFound
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"user_id": userOID, "is_primary": true})
	if err != nil {
		return false, fmt.Errorf("count primary: %w", err)
	}
	return n > 0, nil
}

func (r *CredentialRepository) ClearPrimary(ctx context.Context, userID string) error {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	_, err = r.coll.UpdateMany(ctx,
		bson.M{"user_id": userOID, "is_primary": true},
		bson.M{"$set": bson.M{"is_primary": false}},
	)
	if err != nil {
		return fmt.Errorf("clear primary: %w", err)
	}
	return nil
}

func (r *CredentialRepository) SetPrimary(ctx context.Context, userID, id string) error {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrEntityNotFound
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrEntityNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "user_id": userOID},
		bson.M{"$set": bson.M{"is_primary": true}},
	)
	if err != nil {
		return fmt.Errorf("set primary: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrEntityNotFound
	}
	return nil
}

func (r *CredentialRepository) Delete(ctx context.Context, userID, id string) error {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrEntityNotFound
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrEntityNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userOID})
	if err != nil {
		return fmt.Errorf("delete auth entity: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrEntityNotFound
	}
	return nil
}

func (r *CredentialRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}
	_, err = r.coll.DeleteMany(ctx, bson.M{"user_id": userOID})
	if err != nil {
		return fmt.Errorf("delete auth entities: %w", err)
	}
	return nil
}

// EnsureIndexes creates the indexes backing the credential invariants:
// globally unique wallet addresses, at most one password entity per user,
// and fast primary lookups.
func (r *CredentialRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "wallet.wallet_address", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "type", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"type": string(domain.AuthTypePassword)}),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_primary", Value: 1}},
		},
	})
	return err
}

func (r *CredentialRepository) findOne(ctx context.Context, filter bson.M) (*domain.AuthEntity, error) {
	var doc credentialDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrEntityNotFound
		}
		return nil, fmt.Errorf("find auth entity: %w", err)
	}
	return doc.toDomain(), nil
}

func (d *credentialDoc) toDomain() *domain.AuthEntity {
	entity := &domain.AuthEntity{
		ID:        d.ID.Hex(),
		UserID:    d.UserID.Hex(),
		Type:      domain.AuthType(d.Type),
		IsPrimary: d.IsPrimary,
		CreatedAt: d.CreatedAt,
	}
	if d.Password != nil {
		entity.Password = &domain.PasswordCredential{
			Digest:    d.Password.Digest,
			Algorithm: domain.HashAlgorithm(d.Password.Algorithm),
		}
	}
	if d.Wallet != nil {
		entity.Wallet = &domain.WalletCredential{WalletAddress: d.Wallet.WalletAddress}
	}
	return entity
}
