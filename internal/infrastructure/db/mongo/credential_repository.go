package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pageguard/visitauth/internal/core/domain"
)

const collectionCredentials = "credentials"

// CredentialRepository implements ports.CredentialRepository using MongoDB.
// The user profile is embedded in the credential document, which stands in
// for the foreign-key join of the relational store it fronts.
type CredentialRepository struct {
	col *mongo.Collection
}

func NewCredentialRepository(db *mongo.Database) *CredentialRepository {
	return &CredentialRepository{col: db.Collection(collectionCredentials)}
}

type credentialDoc struct {
	ID         string  `bson:"_id"`
	UserID     string  `bson:"user_id"`
	Login      string  `bson:"login"`
	Salt       string  `bson:"salt"`
	DerivedKey string  `bson:"dk"`
	Role       string  `bson:"role"`
	User       userDoc `bson:"user"`
}

type userDoc struct {
	ID           string     `bson:"id"`
	Name         string     `bson:"name"`
	Email        string     `bson:"email"`
	Birthdate    *time.Time `bson:"birthdate,omitempty"`
	RegisteredAt time.Time  `bson:"registered_at"`
	DeletedAt    *time.Time `bson:"deleted_at,omitempty"`
}

// FindByLogin looks up a credential by exact, case-sensitive login match.
// Soft-deleted users are treated as not found.
func (r *CredentialRepository) FindByLogin(ctx context.Context, login string) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"login": login, "user.deleted_at": nil}

	var doc credentialDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return doc.toDomain(), nil
}

// Create inserts a new credential. The unique index on login turns duplicate
// enrolments into domain.ErrLoginTaken.
func (r *CredentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := credentialDoc{
		ID:         cred.ID,
		UserID:     cred.UserID,
		Login:      cred.Login,
		Salt:       cred.Salt,
		DerivedKey: cred.DerivedKey,
		Role:       cred.Role,
		User: userDoc{
			ID:           cred.User.ID,
			Name:         cred.User.Name,
			Email:        cred.User.Email,
			Birthdate:    cred.User.Birthdate,
			RegisteredAt: cred.User.RegisteredAt,
			DeletedAt:    cred.User.DeletedAt,
		},
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrLoginTaken
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique login index. Uniqueness is enforced here,
// at write time, not re-checked on every read.
func (r *CredentialRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "login", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (d *credentialDoc) toDomain() *domain.Credential {
	return &domain.Credential{
		ID:         d.ID,
		UserID:     d.UserID,
		Login:      d.Login,
		Salt:       d.Salt,
		DerivedKey: d.DerivedKey,
		Role:       d.Role,
		User: domain.User{
			ID:           d.User.ID,
			Name:         d.User.Name,
			Email:        d.User.Email,
			Birthdate:    d.User.Birthdate,
			RegisteredAt: d.User.RegisteredAt,
			DeletedAt:    d.User.DeletedAt,
		},
	}
}
