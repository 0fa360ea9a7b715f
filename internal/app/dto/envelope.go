package dto

import "net/http"

// RequestHint tells the client how to follow up on a response
type RequestHint struct {
	Type string            `json:"type"`
	URL  string            `json:"url"`
	Body map[string]string `json:"body,omitempty"`
}

type ProductListItem struct {
	Name         string      `json:"name"`
	Price        float64     `json:"price"`
	ProductImage string      `json:"productImage"`
	ID           string      `json:"id"`
	URL          RequestHint `json:"url"`
}

type ListProductsResponse struct {
	Count    int               `json:"count"`
	Products []ProductListItem `json:"products"`
}

type CreatedProduct struct {
	Name    string      `json:"name"`
	Price   float64     `json:"price"`
	ID      string      `json:"id"`
	Request RequestHint `json:"request"`
}

type CreateProductResponse struct {
	Message        string         `json:"message"`
	CreatedProduct CreatedProduct `json:"createdProduct"`
}

type GetProductResponse struct {
	Product *ProductResponse `json:"product"`
	Request RequestHint      `json:"request"`
}

// MessageResponse confirms a mutation
type MessageResponse struct {
	Message string      `json:"message"`
	Request RequestHint `json:"request"`
}

const (
	MessageCreated  = "Created product successfully"
	MessageUpdated  = "Product Update!"
	MessageDeleted  = "Product Deleted!"
	MessageNotFound = "No Valid Entry Found for Provided ID"
)

// Links builds navigation hints rooted at the public base URL
type Links struct {
	BaseURL string
}

// Collection is the URL of the product collection
func (l Links) Collection() string {
	return l.BaseURL + "/products/"
}

// Product is the URL of a single product
func (l Links) Product(id string) string {
	return l.Collection() + id
}

// ListProducts wraps products into the list envelope. count always equals
// len(products), including zero.
func (l Links) ListProducts(products []*ProductResponse) ListProductsResponse {
	items := make([]ProductListItem, 0, len(products))
	for _, p := range products {
		items = append(items, ProductListItem{
			Name:         p.Name,
			Price:        p.Price,
			ProductImage: p.ProductImage,
			ID:           p.ID,
			URL:          RequestHint{Type: http.MethodGet, URL: l.Product(p.ID)},
		})
	}
	return ListProductsResponse{Count: len(items), Products: items}
}

func (l Links) CreateProduct(p *ProductResponse) CreateProductResponse {
	return CreateProductResponse{
		Message: MessageCreated,
		CreatedProduct: CreatedProduct{
			Name:    p.Name,
			Price:   p.Price,
			ID:      p.ID,
			Request: RequestHint{Type: http.MethodGet, URL: l.Product(p.ID)},
		},
	}
}

func (l Links) GetProduct(p *ProductResponse) GetProductResponse {
	return GetProductResponse{
		Product: p,
		Request: RequestHint{Type: http.MethodGet, URL: l.Collection()},
	}
}

func (l Links) ProductUpdated(id string) MessageResponse {
	return MessageResponse{
		Message: MessageUpdated,
		Request: RequestHint{Type: http.MethodGet, URL: l.Product(id)},
	}
}

func (l Links) ProductDeleted() MessageResponse {
	return MessageResponse{
		Message: MessageDeleted,
		Request: RequestHint{
			Type: http.MethodPost,
			URL:  l.Collection(),
			Body: map[string]string{"name": "String", "price": "Number"},
		},
	}
}
