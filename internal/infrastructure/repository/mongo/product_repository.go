package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrops-br/catalog-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// productProjection limits reads to the fields exposed by the API
var productProjection = bson.M{"name": 1, "price": 1, "productImage": 1}

type productDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Price        float64            `bson:"price"`
	ProductImage string             `bson:"productImage"`
	CreatedAt    time.Time          `bson:"createdAt,omitempty"`
	UpdatedAt    time.Time          `bson:"updatedAt,omitempty"`
}

func (d *productDocument) toDomain() *domain.Product {
	return &domain.Product{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Price:        d.Price,
		ProductImage: d.ProductImage,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// ProductRepository stores products as documents in a MongoDB collection
type ProductRepository struct {
	collection *mongo.Collection
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewProductRepository creates a repository backed by collection
func NewProductRepository(collection *mongo.Collection, tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		collection: collection,
		tracer:     tracer,
		logger:     logger,
	}
}

// Create inserts product under a fresh ObjectID and writes the hex id back
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	doc := productDocument{
		ID:           primitive.NewObjectID(),
		Name:         product.Name,
		Price:        product.Price,
		ProductImage: product.ProductImage,
		CreatedAt:    product.CreatedAt,
		UpdatedAt:    product.UpdatedAt,
	}

	span.SetAttributes(
		attribute.String("product.id", doc.ID.Hex()),
		attribute.String("product.name", doc.Name),
	)

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return r.fail(ctx, span, "insert product", err)
	}

	product.ID = doc.ID.Hex()

	r.logger.InfoContext(ctx, "Product created in repository",
		slog.String("product_id", product.ID),
		slog.String("product_name", product.Name),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return nil
}

// FindByID retrieves a product by its hex ObjectID. Malformed ids are
// reported as not found.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindByID")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.SetStatus(codes.Error, "Malformed product id")
		return nil, domain.ErrProductNotFound
	}

	var doc productDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": oid},
		options.FindOne().SetProjection(productProjection),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		span.SetStatus(codes.Error, "Product not found")
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, r.fail(ctx, span, "find product", err)
	}

	span.SetStatus(codes.Ok, "Product found")
	return doc.toDomain(), nil
}

// FindAll retrieves every product in insertion order
func (r *ProductRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindAll")
	defer span.End()

	cursor, err := r.collection.Find(ctx, bson.M{},
		options.Find().
			SetProjection(productProjection).
			SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, r.fail(ctx, span, "find products", err)
	}
	defer cursor.Close(ctx)

	products := make([]*domain.Product, 0)
	for cursor.Next(ctx) {
		var doc productDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, r.fail(ctx, span, "decode product", err)
		}
		products = append(products, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, r.fail(ctx, span, "iterate products", err)
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	span.SetStatus(codes.Ok, "Products retrieved successfully")
	return products, nil
}

// Update $sets the fields present in update. Zero matches is not an error.
func (r *ProductRepository) Update(ctx context.Context, id string, update domain.ProductUpdate) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.SetAttributes(attribute.Bool("product.matched", false))
		span.SetStatus(codes.Ok, "Malformed product id matches nothing")
		return nil
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Price != nil {
		set["price"] = *update.Price
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return r.fail(ctx, span, "update product", err)
	}

	span.SetAttributes(attribute.Int64("product.matched_count", result.MatchedCount))
	r.logger.InfoContext(ctx, "Product update applied in repository",
		slog.String("product_id", id),
		slog.Int64("matched", result.MatchedCount),
		slog.Int64("modified", result.ModifiedCount),
	)

	span.SetStatus(codes.Ok, "Product updated")
	return nil
}

// Delete removes at most one product. Zero matches is not an error.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		span.SetStatus(codes.Ok, "Malformed product id matches nothing")
		return nil
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return r.fail(ctx, span, "delete product", err)
	}

	r.logger.InfoContext(ctx, "Product deleted from repository",
		slog.String("product_id", id),
		slog.Int64("deleted", result.DeletedCount),
	)

	span.SetStatus(codes.Ok, "Product deleted")
	return nil
}

func (r *ProductRepository) fail(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "Failed to "+op)
	r.logger.ErrorContext(ctx, "Repository operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s: %w", op, err)
}
