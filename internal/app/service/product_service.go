package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/mrops-br/catalog-api/internal/app/dto"
	"github.com/mrops-br/catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ProductService handles product use cases
type ProductService struct {
	repo                  domain.ProductRepository
	images                domain.ImageStore
	validate              *validator.Validate
	tracer                trace.Tracer
	logger                *slog.Logger
	productCreatedCounter metric.Int64Counter
	productOperations     metric.Int64Counter
}

// NewProductService creates a new product service
func NewProductService(
	repo domain.ProductRepository,
	images domain.ImageStore,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *ProductService {
	productCreatedCounter, _ := meter.Int64Counter(
		"products.created.total",
		metric.WithDescription("Total number of products created"),
	)

	productOperations, _ := meter.Int64Counter(
		"products.operations",
		metric.WithDescription("Total number of product operations"),
	)

	return &ProductService{
		repo:                  repo,
		images:                images,
		validate:              validator.New(validator.WithRequiredStructEnabled()),
		tracer:                tracer,
		logger:                logger,
		productCreatedCounter: productCreatedCounter,
		productOperations:     productOperations,
	}
}

// ListProducts retrieves all products
func (s *ProductService) ListProducts(ctx context.Context) ([]*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.ListProducts")
	defer span.End()

	products, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, s.fail(ctx, span, "list", "Failed to list products", err)
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	s.record(ctx, "list", "success")

	s.logger.InfoContext(ctx, "Products listed successfully",
		slog.Int("count", len(products)),
	)

	span.SetStatus(codes.Ok, "Products listed successfully")
	return dto.ToProductResponseList(products), nil
}

// CreateProduct validates req, accepts image and persists the product. The
// stored image is removed again if persisting fails.
func (s *ProductService) CreateProduct(ctx context.Context, req *dto.CreateProductRequest, image *domain.IncomingImage) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.CreateProduct")
	defer span.End()

	span.SetAttributes(attribute.String("product.name", req.Name))

	s.logger.InfoContext(ctx, "Creating product",
		slog.String("name", req.Name),
		slog.String("price", req.Price),
	)

	product, err := s.newProduct(req)
	if err != nil {
		return nil, s.fail(ctx, span, "create", "Validation failed", err)
	}

	upload, err := s.images.Accept(ctx, image)
	if err != nil {
		return nil, s.fail(ctx, span, "create", "Upload failed", err)
	}
	if !upload.Accepted() {
		err := fmt.Errorf("%w: %s", domain.ErrMissingProductImage, upload.RejectReason)
		return nil, s.fail(ctx, span, "create", "Upload rejected", err)
	}
	product.ProductImage = upload.Image.Path

	if err := s.repo.Create(ctx, product); err != nil {
		if rmErr := s.images.Remove(ctx, upload.Image.Path); rmErr != nil {
			s.logger.WarnContext(ctx, "Failed to remove orphaned product image",
				slog.String("path", upload.Image.Path),
				slog.String("error", rmErr.Error()),
			)
		}
		return nil, s.fail(ctx, span, "create", "Failed to store product", err)
	}

	span.SetAttributes(attribute.String("product.id", product.ID))
	s.productCreatedCounter.Add(ctx, 1)
	s.record(ctx, "create", "success")

	s.logger.InfoContext(ctx, "Product created successfully",
		slog.String("product_id", product.ID),
		slog.String("product_image", product.ProductImage),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return dto.ToProductResponse(product), nil
}

// GetProductByID retrieves a product by ID
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProductByID")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	product, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrProductNotFound) {
		span.SetStatus(codes.Error, "Product not found")
		s.logger.WarnContext(ctx, "Product not found",
			slog.String("product_id", id),
		)
		s.record(ctx, "read", "not_found")
		return nil, err
	}
	if err != nil {
		return nil, s.fail(ctx, span, "read", "Failed to get product", err)
	}

	s.record(ctx, "read", "success")

	span.SetStatus(codes.Ok, "Product retrieved successfully")
	return dto.ToProductResponse(product), nil
}

// UpdateProduct folds ops into a single partial update, later operations
// overriding earlier ones, and applies it. An id matching no product is
// not an error.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, ops []dto.PatchOperation) error {
	ctx, span := s.tracer.Start(ctx, "ProductService.UpdateProduct")
	defer span.End()

	span.SetAttributes(
		attribute.String("product.id", id),
		attribute.Int("patch.operations", len(ops)),
	)

	var update domain.ProductUpdate
	for _, op := range ops {
		value, err := s.patchValue(op)
		if err != nil {
			return s.fail(ctx, span, "update", "Validation failed", err)
		}
		if err := update.Set(op.PropName, value); err != nil {
			return s.fail(ctx, span, "update", "Validation failed", err)
		}
	}

	if update.IsEmpty() {
		s.logger.InfoContext(ctx, "Empty product update ignored",
			slog.String("product_id", id),
		)
		s.record(ctx, "update", "success")
		span.SetStatus(codes.Ok, "Nothing to update")
		return nil
	}

	if err := s.repo.Update(ctx, id, update); err != nil {
		return s.fail(ctx, span, "update", "Failed to update product", err)
	}

	s.record(ctx, "update", "success")
	s.logger.InfoContext(ctx, "Product updated",
		slog.String("product_id", id),
	)

	span.SetStatus(codes.Ok, "Product updated")
	return nil
}

// DeleteProduct removes the product with the given ID, if any
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "ProductService.DeleteProduct")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.fail(ctx, span, "delete", "Failed to delete product", err)
	}

	s.record(ctx, "delete", "success")
	s.logger.InfoContext(ctx, "Product deleted",
		slog.String("product_id", id),
	)

	span.SetStatus(codes.Ok, "Product deleted")
	return nil
}

func (s *ProductService) newProduct(req *dto.CreateProductRequest) (*domain.Product, error) {
	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 && fieldErrs[0].Field() == "Name" {
			return nil, domain.ErrInvalidProductName
		}
		return nil, domain.ErrInvalidProductPrice
	}

	price, err := s.parsePrice(req.Price)
	if err != nil {
		return nil, err
	}

	return domain.NewProduct(req.Name, price, "")
}

// patchValue parses a textual price with the same rule create uses
func (s *ProductService) patchValue(op dto.PatchOperation) (any, error) {
	raw, ok := op.Value.(string)
	if op.PropName != domain.FieldPrice || !ok {
		return op.Value, nil
	}

	price, err := s.parsePrice(raw)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", domain.ErrInvalidPatchValue, op.PropName, err)
	}
	return price, nil
}

// parsePrice accepts plain decimal text only, so "0x10" or "1_0" never
// become prices.
func (s *ProductService) parsePrice(raw string) (float64, error) {
	if err := s.validate.Var(raw, "required,numeric"); err != nil {
		return 0, domain.ErrInvalidProductPrice
	}

	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, domain.ErrInvalidProductPrice
	}
	return price, nil
}

func (s *ProductService) record(ctx context.Context, operation, result string) {
	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		),
	)
}

func (s *ProductService) fail(ctx context.Context, span trace.Span, operation, status string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	s.record(ctx, operation, "failure")

	s.logger.ErrorContext(ctx, status,
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
	return err
}
