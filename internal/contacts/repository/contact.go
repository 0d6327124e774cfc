package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	contactserrors "atelier/internal/contacts/errors"
	"atelier/pkg/config"
	"atelier/pkg/model"
)

const CollectionName = "contacts"

type mongoContactRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type ContactRepository interface {
	Create(ctx context.Context, contact *model.Contact) error
	FindByID(ctx context.Context, id string) (*model.Contact, error)
	FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Contact, error)
	UpdateStatus(ctx context.Context, id string, status string, respondedAt *time.Time) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, status string) (int64, error)
	Statistics(ctx context.Context) (*model.ContactStatistics, error)
}

func NewMongoContactRepository(cfg *config.Config) ContactRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoContactRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoContactRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoContactRepository) Create(ctx context.Context, contact *model.Contact) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	contact.CreatedAt = now
	contact.UpdatedAt = now
	if contact.ID == "" {
		contact.ID = primitive.NewObjectID().Hex()
	}

	if _, err := r.collection.InsertOne(ctx, contact); err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

func (r *mongoContactRepository) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("%w: %s", contactserrors.ErrInvalidID, id)
	}

	var contact model.Contact
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&contact)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, contactserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find contact: %w", err)
	}

	return &contact, nil
}

func (r *mongoContactRepository) FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Contact, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find contacts: %w", err)
	}
	defer cursor.Close(ctx)

	var contacts []*model.Contact
	if err = cursor.All(ctx, &contacts); err != nil {
		return nil, fmt.Errorf("failed to decode contacts: %w", err)
	}

	return contacts, nil
}

func (r *mongoContactRepository) UpdateStatus(ctx context.Context, id string, status string, respondedAt *time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", contactserrors.ErrInvalidID, id)
	}

	set := bson.M{
		"status":     status,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}
	if respondedAt != nil {
		set["responded_at"] = respondedAt
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update contact status: %w", err)
	}
	if result.MatchedCount == 0 {
		return contactserrors.ErrNotFound
	}
	return nil
}

func (r *mongoContactRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", contactserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	if result.DeletedCount == 0 {
		return contactserrors.ErrNotFound
	}
	return nil
}

func (r *mongoContactRepository) Count(ctx context.Context, status string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}

// Statistics produces per-status counts and a rolling 7 day submission
// count with a $facet pipeline.
func (r *mongoContactRepository) Statistics(ctx context.Context) (*model.ContactStatistics, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	weekAgo := time.Now().AddDate(0, 0, -7)

	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"by_status": bson.A{
				bson.M{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
				bson.M{"$project": bson.M{"_id": 0, "status": "$_id", "count": 1}},
				bson.M{"$sort": bson.M{"status": 1}},
			},
			"recent": bson.A{
				bson.M{"$match": bson.M{"created_at": bson.M{"$gte": weekAgo}}},
				bson.M{"$count": "count"},
			},
			"total": bson.A{
				bson.M{"$count": "count"},
			},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate contact statistics: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		ByStatus []model.StatusCount `bson:"by_status"`
		Recent   []struct {
			Count int64 `bson:"count"`
		} `bson:"recent"`
		Total []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode contact statistics: %w", err)
	}
	if len(results) == 0 {
		return &model.ContactStatistics{}, nil
	}

	stats := &model.ContactStatistics{ByStatus: results[0].ByStatus}
	if len(results[0].Total) > 0 {
		stats.Total = results[0].Total[0].Count
	}
	if len(results[0].Recent) > 0 {
		stats.Last7Days = results[0].Recent[0].Count
	}
	return stats, nil
}
