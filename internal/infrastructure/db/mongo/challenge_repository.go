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

const challengeCollection = "auth_challenges"

type ChallengeRepository struct {
	coll *mongo.Collection
}

func NewChallengeRepository(db *mongo.Database) *ChallengeRepository {
	return &ChallengeRepository{coll: db.Collection(challengeCollection)}
}

type challengeDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Target     string             `bson:"target"`
	Message    string             `bson:"message"`
	ExpiredAt  time.Time          `bson:"expired_at"`
	IsResolved bool               `bson:"is_resolved"`
	CreatedAt  time.Time          `bson:"created_at"`
}

func (r *ChallengeRepository) Create(ctx context.Context, challenge *domain.AuthChallenge) (*domain.AuthChallenge, error) {
	doc := challengeDoc{
		ID:         primitive.NewObjectID(),
		Target:     challenge.Target,
		Message:    challenge.Message,
		ExpiredAt:  challenge.ExpiredAt,
		IsResolved: challenge.IsResolved,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert challenge: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ChallengeRepository) FindByID(ctx context.Context, id string) (*domain.AuthChallenge, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrChallengeNotFound
	}
	var doc challengeDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("find challenge: %w", err)
	}
	return doc.toDomain(), nil
}

// Resolve flips the challenge to resolved, but only if it is still open and
// unexpired. The conditional update makes concurrent consumers race for a
// single winner.
func (r *ChallengeRepository) Resolve(ctx context.Context, id string, now time.Time) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, domain.ErrChallengeNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{
			"_id":         oid,
			"is_resolved": false,
			"expired_at":  bson.M{"$gt": now},
		},
		bson.M{"$set": bson.M{"is_resolved": true}},
	)
	if err != nil {
		return false, fmt.Errorf("resolve challenge: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// EnsureIndexes sets a TTL index so stale challenges get reaped by Mongo a
// while after they expire.
func (r *ChallengeRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expired_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(3600),
	})
	return err
}

func (d *challengeDoc) toDomain() *domain.AuthChallenge {
	return &domain.AuthChallenge{
		ID:         d.ID.Hex(),
		Target:     d.Target,
		Message:    d.Message,
		ExpiredAt:  d.ExpiredAt,
		IsResolved: d.IsResolved,
		CreatedAt:  d.CreatedAt,
	}
}
