package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var links = Links{BaseURL: "https://shop.example.com"}

func TestLinks_ListProducts(t *testing.T) {
	empty := links.ListProducts(nil)
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Products, "empty list must encode as [] not null")

	body, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":0,"products":[]}`, string(body))

	list := links.ListProducts([]*ProductResponse{
		{ID: "a", Name: "A", Price: 1, ProductImage: "uploads/a.png"},
		{ID: "b", Name: "B", Price: 2, ProductImage: "uploads/b.png"},
	})
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "https://shop.example.com/products/a", list.Products[0].URL.URL)
	assert.Equal(t, "GET", list.Products[1].URL.Type)
}

func TestLinks_CreateProduct(t *testing.T) {
	body, err := json.Marshal(links.CreateProduct(&ProductResponse{ID: "x", Name: "Widget", Price: 9.99, ProductImage: "p"}))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"message": "Created product successfully",
		"createdProduct": {
			"name": "Widget",
			"price": 9.99,
			"id": "x",
			"request": {"type": "GET", "url": "https://shop.example.com/products/x"}
		}
	}`, string(body))
}

func TestLinks_GetProduct(t *testing.T) {
	body, err := json.Marshal(links.GetProduct(&ProductResponse{ID: "x", Name: "Widget", Price: 9.99, ProductImage: "p"}))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"product": {"name": "Widget", "price": 9.99, "productImage": "p", "id": "x"},
		"request": {"type": "GET", "url": "https://shop.example.com/products/"}
	}`, string(body))
}

func TestLinks_MutationMessages(t *testing.T) {
	body, err := json.Marshal(links.ProductUpdated("x"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Product Update!","request":{"type":"GET","url":"https://shop.example.com/products/x"}}`, string(body))

	body, err = json.Marshal(links.ProductDeleted())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"message": "Product Deleted!",
		"request": {
			"type": "POST",
			"url": "https://shop.example.com/products/",
			"body": {"name": "String", "price": "Number"}
		}
	}`, string(body))
}
