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

	subscriptionserrors "atelier/internal/subscriptions/errors"
	"atelier/pkg/config"
	"atelier/pkg/model"
)

const CollectionName = "subscriptions"

type mongoSubscriptionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) error
	FindByID(ctx context.Context, id string) (*model.Subscription, error)
	FindByToken(ctx context.Context, token string) (*model.Subscription, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Subscription, error)
	Update(ctx context.Context, id string, sub *model.Subscription) error
	MarkVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	MonthlyStatistics(ctx context.Context) ([]model.MonthlySubscriptionStat, error)
}

func NewMongoSubscriptionRepository(cfg *config.Config) SubscriptionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSubscriptionRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoSubscriptionRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// Create relies on the unique email index: a duplicate key error surfaces
// as ErrDuplicateEmail.
func (r *mongoSubscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if sub.ID == "" {
		sub.ID = primitive.NewObjectID().Hex()
	}

	if _, err := r.collection.InsertOne(ctx, sub); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return subscriptionserrors.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *mongoSubscriptionRepository) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("%w: %s", subscriptionserrors.ErrInvalidID, id)
	}

	var sub model.Subscription
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&sub)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, subscriptionserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}

	return &sub, nil
}

func (r *mongoSubscriptionRepository) FindByToken(ctx context.Context, token string) (*model.Subscription, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var sub model.Subscription
	err := r.collection.FindOne(ctx, bson.M{"verification_token": token}).Decode(&sub)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, subscriptionserrors.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to find subscription by token: %w", err)
	}

	return &sub, nil
}

func (r *mongoSubscriptionRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Subscription, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	var subs []*model.Subscription
	if err = cursor.All(ctx, &subs); err != nil {
		return nil, fmt.Errorf("failed to decode subscriptions: %w", err)
	}

	return subs, nil
}

func (r *mongoSubscriptionRepository) Update(ctx context.Context, id string, sub *model.Subscription) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", subscriptionserrors.ErrInvalidID, id)
	}

	sub.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	update := bson.M{"$set": bson.M{
		"name":       sub.Name,
		"email":      sub.Email,
		"updated_at": sub.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return subscriptionserrors.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if result.MatchedCount == 0 {
		return subscriptionserrors.ErrNotFound
	}
	return nil
}

// MarkVerified flips the flag and clears the token in one write.
func (r *mongoSubscriptionRepository) MarkVerified(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set":   bson.M{"verified": true, "updated_at": time.Now().UTC().Truncate(time.Millisecond)},
		"$unset": bson.M{"verification_token": ""},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to mark subscription verified: %w", err)
	}
	if result.MatchedCount == 0 {
		return subscriptionserrors.ErrNotFound
	}
	return nil
}

func (r *mongoSubscriptionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", subscriptionserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if result.DeletedCount == 0 {
		return subscriptionserrors.ErrNotFound
	}
	return nil
}

func (r *mongoSubscriptionRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count, nil
}

// MonthlyStatistics buckets the trailing 12 months by signup month.
func (r *mongoSubscriptionRepository) MonthlyStatistics(ctx context.Context) ([]model.MonthlySubscriptionStat, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	yearAgo := time.Now().AddDate(-1, 0, 0)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": yearAgo}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$month": "$created_at"},
			"total": bson.M{"$sum": 1},
			"verified": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$verified", true}}, 1, 0,
			}}},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":      0,
			"month":    "$_id",
			"total":    1,
			"verified": 1,
		}}},
		{{Key: "$sort", Value: bson.M{"month": 1}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate subscription statistics: %w", err)
	}
	defer cursor.Close(ctx)

	var stats []model.MonthlySubscriptionStat
	if err = cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode subscription statistics: %w", err)
	}
	return stats, nil
}
