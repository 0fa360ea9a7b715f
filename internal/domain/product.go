package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidProductName  = errors.New("product name is required")
	ErrInvalidProductPrice = errors.New("product price must be a positive number")
	ErrUnknownPatchField   = errors.New("property cannot be updated")
	ErrInvalidPatchValue   = errors.New("invalid value for property")
)

// Mutable product properties accepted by a partial update.
const (
	FieldName  = "name"
	FieldPrice = "price"
)

// Product represents the product entity
type Product struct {
	ID           string
	Name         string
	Price        float64
	ProductImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewProduct creates a new product with validation. The ID is left empty,
// it is assigned by the repository on Create.
func NewProduct(name string, price float64, productImage string) (*Product, error) {
	now := time.Now().UTC()
	product := &Product{
		Name:         name,
		Price:        price,
		ProductImage: productImage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := product.Validate(); err != nil {
		return nil, err
	}

	return product, nil
}

// Validate performs business validation on the product
func (p *Product) Validate() error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	return validatePrice(p.Price)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidProductName
	}
	return nil
}

func validatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return ErrInvalidProductPrice
	}
	return nil
}

// ProductUpdate is a field-level merge applied to an existing product.
// Nil fields are left untouched.
type ProductUpdate struct {
	Name  *string
	Price *float64
}

// IsEmpty reports whether the update changes nothing.
func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.Price == nil
}

// Apply merges the update into p.
func (u ProductUpdate) Apply(p *Product) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
}

// Set assigns one property of the update, enforcing the allow-list and the
// same rules NewProduct applies. A later Set for the same property replaces
// the earlier value.
func (u *ProductUpdate) Set(prop string, value any) error {
	switch prop {
	case FieldName:
		name, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w %q: expected a string", ErrInvalidPatchValue, prop)
		}
		if err := validateName(name); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidPatchValue, prop, err)
		}
		u.Name = &name
	case FieldPrice:
		price, err := toFloat(value)
		if err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidPatchValue, prop, err)
		}
		if err := validatePrice(price); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidPatchValue, prop, err)
		}
		u.Price = &price
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPatchField, prop)
	}
	return nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", value)
	}
}
