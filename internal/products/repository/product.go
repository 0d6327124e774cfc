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

	productserrors "atelier/internal/products/errors"
	"atelier/pkg/config"
	"atelier/pkg/model"
)

const CollectionName = "products"

type mongoProductRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	FindAll(ctx context.Context, category string, limit int, offset int64) ([]*model.Product, error)
	Update(ctx context.Context, id string, product *model.Product) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, category string) (int64, error)
	DecrementStock(ctx context.Context, id string, quantity int) error
	IncrementStock(ctx context.Context, id string, quantity int) error
	CategoryStatistics(ctx context.Context) ([]model.CategoryStat, error)
}

func NewMongoProductRepository(cfg *config.Config) ProductRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoProductRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoProductRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoProductRepository) Create(ctx context.Context, product *model.Product) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	product.CreatedAt = now
	product.UpdatedAt = now
	if product.ID == "" {
		product.ID = primitive.NewObjectID().Hex()
	}

	if _, err := r.collection.InsertOne(ctx, product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *mongoProductRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("%w: %s", productserrors.ErrInvalidID, id)
	}

	var product model.Product
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, productserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	return &product, nil
}

func (r *mongoProductRepository) FindAll(ctx context.Context, category string, limit int, offset int64) ([]*model.Product, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []*model.Product
	if err = cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	return products, nil
}

func (r *mongoProductRepository) Update(ctx context.Context, id string, product *model.Product) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", productserrors.ErrInvalidID, id)
	}

	product.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	update := bson.M{"$set": bson.M{
		"name":           product.Name,
		"description":    product.Description,
		"price":          product.Price,
		"discount_price": product.DiscountPrice,
		"category":       product.Category,
		"stock":          product.Stock,
		"sizes":          product.Sizes,
		"colors":         product.Colors,
		"images":         product.Images,
		"ratings":        product.Ratings,
		"featured":       product.Featured,
		"updated_at":     product.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return productserrors.ErrNotFound
	}
	return nil
}

func (r *mongoProductRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", productserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return productserrors.ErrNotFound
	}
	return nil
}

func (r *mongoProductRepository) Count(ctx context.Context, category string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// DecrementStock conditionally takes quantity units, bumping the sales
// count in the same write. The stock guard in the filter makes overselling
// impossible even across concurrent orders.
func (r *mongoProductRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":   id,
		"stock": bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{
			"stock":       -quantity,
			"sales_count": int64(quantity),
		},
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return productserrors.ErrInsufficientStock
	}
	return nil
}

// IncrementStock returns quantity units to stock and backs out the sales
// count, reversing an earlier decrement.
func (r *mongoProductRepository) IncrementStock(ctx context.Context, id string, quantity int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{
			"stock":       quantity,
			"sales_count": int64(-quantity),
		},
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return productserrors.ErrNotFound
	}
	return nil
}

// CategoryStatistics groups products per category with average price and
// remaining stock.
func (r *mongoProductRepository) CategoryStatistics(ctx context.Context) ([]model.CategoryStat, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":         "$category",
			"count":       bson.M{"$sum": 1},
			"avg_price":   bson.M{"$avg": "$price"},
			"total_stock": bson.M{"$sum": "$stock"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":         0,
			"category":    "$_id",
			"count":       1,
			"avg_price":   bson.M{"$toLong": bson.M{"$round": "$avg_price"}},
			"total_stock": 1,
		}}},
		{{Key: "$sort", Value: bson.M{"category": 1}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate product statistics: %w", err)
	}
	defer cursor.Close(ctx)

	var stats []model.CategoryStat
	if err = cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode product statistics: %w", err)
	}
	return stats, nil
}
