package dto

import (
	"github.com/mrops-br/catalog-api/internal/domain"
)

// CreateProductRequest carries the text fields of the multipart create form
type CreateProductRequest struct {
	Name  string `validate:"required"`
	Price string `validate:"required,numeric"`
}

// PatchOperation sets one property of a product
type PatchOperation struct {
	PropName string `json:"propName"`
	Value    any    `json:"value"`
}

// ProductResponse is the public projection of a product
type ProductResponse struct {
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	ProductImage string  `json:"productImage"`
	ID           string  `json:"id"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *domain.Product) *ProductResponse {
	return &ProductResponse{
		Name:         p.Name,
		Price:        p.Price,
		ProductImage: p.ProductImage,
		ID:           p.ID,
	}
}

// ToProductResponseList converts a list of domain Products to ProductResponse list
func ToProductResponseList(products []*domain.Product) []*ProductResponse {
	responses := make([]*ProductResponse, len(products))
	for i, p := range products {
		responses[i] = ToProductResponse(p)
	}
	return responses
}
