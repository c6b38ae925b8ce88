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

const collectionVisits = "visits"

// VisitRepository implements ports.VisitRepository using MongoDB.
type VisitRepository struct {
	col *mongo.Collection
}

func NewVisitRepository(db *mongo.Database) *VisitRepository {
	return &VisitRepository{col: db.Collection(collectionVisits)}
}

type visitDoc struct {
	ID               string     `bson:"_id"`
	VisitTime        time.Time  `bson:"visit_time"`
	RequestPath      string     `bson:"request_path"`
	UserLogin        string     `bson:"user_login,omitempty"`
	ConfirmationCode string     `bson:"confirmation_code"`
	IsConfirmed      bool       `bson:"is_confirmed"`
	ConfirmedAt      *time.Time `bson:"confirmed_at,omitempty"`
	UserAgent        string     `bson:"user_agent,omitempty"`
	ClientAddr       string     `bson:"client_addr,omitempty"`
}

func (r *VisitRepository) Create(ctx context.Context, v *domain.Visit) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := visitDoc{
		ID:               v.ID,
		VisitTime:        v.VisitTime,
		RequestPath:      v.RequestPath,
		UserLogin:        v.UserLogin,
		ConfirmationCode: v.ConfirmationCode,
		IsConfirmed:      v.IsConfirmed,
		ConfirmedAt:      v.ConfirmedAt,
		UserAgent:        v.UserAgent,
		ClientAddr:       v.ClientAddr,
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

func (r *VisitRepository) FindByID(ctx context.Context, id string) (*domain.Visit, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc visitDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrVisitNotFound
		}
		return nil, fmt.Errorf("find visit: %w", err)
	}
	return doc.toDomain(), nil
}

// Confirm atomically flips is_confirmed false→true when the id and code
// match. The is_confirmed guard in the filter serializes concurrent
// confirmations: the second caller misses the guard and is told the visit is
// already confirmed.
func (r *VisitRepository) Confirm(ctx context.Context, id, code string, at time.Time) (*domain.Visit, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "confirmation_code": code, "is_confirmed": false}
	update := bson.M{"$set": bson.M{"is_confirmed": true, "confirmed_at": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc visitDoc
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("confirm visit: %w", err)
	}

	// Guard missed: either the visit is already confirmed or the id/code
	// pair matches nothing.
	var existing visitDoc
	err = r.col.FindOne(ctx, bson.M{"_id": id, "confirmation_code": code}).Decode(&existing)
	switch {
	case err == nil && existing.IsConfirmed:
		return nil, domain.ErrAlreadyConfirmed
	case err == nil:
		// The update raced with another writer between the two reads.
		return nil, domain.ErrVisitNotFound
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, domain.ErrVisitNotFound
	default:
		return nil, fmt.Errorf("confirm visit: %w", err)
	}
}

// StatsByPath groups all visits by request path: total count, confirmed
// count, and most recent visit time, ordered by total descending.
func (r *VisitRepository) StatsByPath(ctx context.Context) ([]domain.PathStats, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$request_path"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "confirmed", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{"$is_confirmed", 1, 0}},
			}}}},
			{Key: "last_visit", Value: bson.D{{Key: "$max", Value: "$visit_time"}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "total", Value: -1}}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate visits: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Path      string    `bson:"_id"`
		Total     int64     `bson:"total"`
		Confirmed int64     `bson:"confirmed"`
		LastVisit time.Time `bson:"last_visit"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode visit stats: %w", err)
	}

	stats := make([]domain.PathStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, domain.PathStats{
			Path:            row.Path,
			TotalVisits:     row.Total,
			ConfirmedVisits: row.Confirmed,
			LastVisit:       row.LastVisit,
		})
	}
	return stats, nil
}

// EnsureIndexes creates the lookup indexes on the visits collection.
func (r *VisitRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "visit_time", Value: 1}}},
		{Keys: bson.D{{Key: "request_path", Value: 1}}},
		{Keys: bson.D{{Key: "user_login", Value: 1}}},
		{Keys: bson.D{{Key: "confirmation_code", Value: 1}}},
		{Keys: bson.D{{Key: "is_confirmed", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (d *visitDoc) toDomain() *domain.Visit {
	return &domain.Visit{
		ID:               d.ID,
		VisitTime:        d.VisitTime,
		RequestPath:      d.RequestPath,
		UserLogin:        d.UserLogin,
		ConfirmationCode: d.ConfirmationCode,
		IsConfirmed:      d.IsConfirmed,
		ConfirmedAt:      d.ConfirmedAt,
		UserAgent:        d.UserAgent,
		ClientAddr:       d.ClientAddr,
	}
}
