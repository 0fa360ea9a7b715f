package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mrops-br/catalog-api/internal/app/dto"
	"github.com/mrops-br/catalog-api/internal/app/service"
	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http/response"
)

const (
	// ImageField is the multipart field carrying the product image
	ImageField = "productImage"

	// formOverhead is allowed on top of the image size for the other form parts
	formOverhead = 1 << 20

	// multipartMemory is kept in memory before parts spill to temp files
	multipartMemory = 1 << 20

	maxPatchBodyBytes = 64 << 10
)

// Options tunes a ProductHandler
type Options struct {
	// BaseURL is the public root used in navigation hints
	BaseURL string
	// MaxImageBytes bounds the create request body
	MaxImageBytes int64
	// HideInternalErrors replaces repository failure details with a generic text
	HideInternalErrors bool
}

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
	links   dto.Links
	opts    Options
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger, opts Options) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
		links:   dto.Links{BaseURL: opts.BaseURL},
		opts:    opts,
	}
}

// ListProducts handles GET /products/
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, h.links.ListProducts(products))
}

// CreateProduct handles POST /products/ with a multipart body
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxImageBytes+formOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, fmt.Errorf("%w: limit is %d bytes", domain.ErrImageTooLarge, h.opts.MaxImageBytes))
			return
		}
		h.logger.WarnContext(r.Context(), "Failed to parse multipart form",
			slog.String("error", err.Error()),
		)
		response.Message(w, http.StatusBadRequest, "request must be a multipart form: "+err.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	req := &dto.CreateProductRequest{
		Name:  r.FormValue("name"),
		Price: r.FormValue("price"),
	}

	var image *domain.IncomingImage
	file, header, err := r.FormFile(ImageField)
	switch {
	case err == nil:
		defer file.Close()
		image = &domain.IncomingImage{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Content:     file,
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		response.Message(w, http.StatusBadRequest, "invalid "+ImageField+" field: "+err.Error())
		return
	}

	product, err := h.service.CreateProduct(r.Context(), req, image)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, h.links.CreateProduct(product))
}

// GetProduct handles GET /products/{productId}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productId")

	product, err := h.service.GetProductByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, h.links.GetProduct(product))
}

// UpdateProduct handles PATCH /products/{productId} with a list of
// {propName, value} operations
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productId")

	var ops []dto.PatchOperation
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPatchBodyBytes)).Decode(&ops); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode patch body",
			slog.String("error", err.Error()),
		)
		response.Message(w, http.StatusBadRequest, "body must be a JSON array of {propName, value}: "+err.Error())
		return
	}

	if err := h.service.UpdateProduct(r.Context(), id, ops); err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, h.links.ProductUpdated(id))
}

// DeleteProduct handles DELETE /products/{productId}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productId")

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, h.links.ProductDeleted())
}

// writeError maps service errors to status codes. Anything unclassified is
// a repository or storage failure.
func (h *ProductHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		response.Message(w, http.StatusNotFound, dto.MessageNotFound)
	case errors.Is(err, domain.ErrImageTooLarge):
		response.Message(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, domain.ErrInvalidProductName),
		errors.Is(err, domain.ErrInvalidProductPrice),
		errors.Is(err, domain.ErrMissingProductImage),
		errors.Is(err, domain.ErrUnknownPatchField),
		errors.Is(err, domain.ErrInvalidPatchValue):
		response.Message(w, http.StatusBadRequest, err.Error())
	default:
		response.Error(w, http.StatusInternalServerError, err, h.opts.HideInternalErrors)
	}
}
