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

	orderserrors "atelier/internal/orders/errors"
	"atelier/pkg/config"
	"atelier/pkg/model"
)

const CollectionName = "orders"

type mongoOrderRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id string) (*model.Order, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Order, error)
	UpdateStatus(ctx context.Context, id string, orderStatus string) error
	UpdatePayment(ctx context.Context, id string, paymentStatus, paymentIntent string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	Statistics(ctx context.Context) (*model.OrderStatistics, error)
}

func NewMongoOrderRepository(cfg *config.Config) OrderRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOrderRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoOrderRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoOrderRepository) Create(ctx context.Context, order *model.Order) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.ID == "" {
		order.ID = primitive.NewObjectID().Hex()
	}

	if _, err := r.collection.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *mongoOrderRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("%w: %s", orderserrors.ErrInvalidID, id)
	}

	var order model.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, orderserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	return &order, nil
}

func (r *mongoOrderRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Order, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*model.Order
	if err = cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	return orders, nil
}

func (r *mongoOrderRepository) UpdateStatus(ctx context.Context, id string, orderStatus string) error {
	return r.update(ctx, id, bson.M{
		"order_status": orderStatus,
		"updated_at":   time.Now().UTC().Truncate(time.Millisecond),
	})
}

func (r *mongoOrderRepository) UpdatePayment(ctx context.Context, id string, paymentStatus, paymentIntent string) error {
	set := bson.M{
		"payment_status": paymentStatus,
		"updated_at":     time.Now().UTC().Truncate(time.Millisecond),
	}
	if paymentIntent != "" {
		set["payment_intent"] = paymentIntent
	}
	return r.update(ctx, id, set)
}

func (r *mongoOrderRepository) update(ctx context.Context, id string, set bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", orderserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if result.MatchedCount == 0 {
		return orderserrors.ErrNotFound
	}
	return nil
}

func (r *mongoOrderRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", orderserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if result.DeletedCount == 0 {
		return orderserrors.ErrNotFound
	}
	return nil
}

func (r *mongoOrderRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// Statistics computes order counts and revenue in one pipeline. Revenue and
// the average only cover orders whose payment completed.
func (r *mongoOrderRepository) Statistics(ctx context.Context) (*model.OrderStatistics, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"total_orders": bson.M{"$sum": 1},
			"total_revenue": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$payment_status", model.OrderPaymentCompleted}},
				"$total_price",
				0,
			}}},
			"completed_orders": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$payment_status", model.OrderPaymentCompleted}},
				1,
				0,
			}}},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":           0,
			"total_orders":  1,
			"total_revenue": 1,
			"avg_order_value": bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{"$completed_orders", 0}},
				bson.M{"$toLong": bson.M{"$round": bson.M{"$divide": bson.A{"$total_revenue", "$completed_orders"}}}},
				0,
			}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate order statistics: %w", err)
	}
	defer cursor.Close(ctx)

	var results []model.OrderStatistics
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode order statistics: %w", err)
	}
	if len(results) == 0 {
		return &model.OrderStatistics{}, nil
	}
	return &results[0], nil
}
