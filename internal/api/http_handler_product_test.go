package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

func validProductPayload() domain.ProductPayload {
	price := decimal.RequireFromString("19.99")
	return domain.ProductPayload{
		Product: &domain.ProductInput{
			Title:           "Desk Lamp",
			Slug:            "desk-lamp",
			Description:     "Warm light",
			GeneralCategory: "lighting",
			Vendor:          "Lumen",
			FreeShipping:    PtrTo(true),
			Available:       domain.AvailabilityIn,
			ItemsInStock:    PtrTo(4),
		},
		Variants:    []domain.VariantInput{{VariantID: "dl-black", Title: "Black", Price: &price}},
		Categories:  []string{"lighting"},
		Images:      []string{"/img/lamp.png"},
		Features:    []string{"LED"},
		BuyTogether: []int64{2},
	}
}

func TestHTTPHandler_GetProductsByCategory_ParsesQuery(t *testing.T) {
	mockProducts := new(MockProductStorer)
	server, _ := setupTestChiServer(t, Dependencies{Products: mockProducts})

	page := &domain.ProductPage{
		Products:   []domain.ProductSummary{{ID: 1, Title: "Desk Lamp", Images: []string{}, Variants: []domain.Variant{}, Price: []decimal.Decimal{}}},
		Pagination: domain.Pagination{CurrentPage: 2, PageSize: 5, TotalItems: 6, TotalPages: 2},
	}
	mockProducts.On("QueryProductsByCategory", mock.Anything, mock.MatchedBy(func(q store.CategoryQuery) bool {
		return q.Category == "lighting" &&
			q.PriceMin != nil && q.PriceMin.Equal(decimal.RequireFromString("10")) &&
			q.PriceMax != nil && q.PriceMax.Equal(decimal.RequireFromString("50.5")) &&
			q.Sort == "price-ascending" && q.Page == 2 && q.PageSize == 5 &&
			q.Available != nil && *q.Available == domain.AvailabilityIn
	})).Return(page, nil).Once()

	res, err := http.Get(server.URL + "/api/products/category/lighting?price_min=10&price_max=50.5&sort=price-ascending&page=2&pageSize=5&available=in")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got domain.ProductPage
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, res).Data, &got))
	assert.Equal(t, page.Pagination, got.Pagination)
	require.Len(t, got.Products, 1)
	assert.Equal(t, "Desk Lamp", got.Products[0].Title)
	mockProducts.AssertExpectations(t)
}

func TestHTTPHandler_GetProductsByCategory_Defaults(t *testing.T) {
	mockProducts := new(MockProductStorer)
	server, _ := setupTestChiServer(t, Dependencies{Products: mockProducts})

	mockProducts.On("QueryProductsByCategory", mock.Anything, store.CategoryQuery{Category: "decor"}).
		Return(&domain.ProductPage{Products: []domain.ProductSummary{}}, nil).Once()

	res, err := http.Get(server.URL + "/api/products/category/decor")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()
	mockProducts.AssertExpectations(t)
}

func TestHTTPHandler_GetProductsByCategory_RejectsBadQuery(t *testing.T) {
	mockProducts := new(MockProductStorer)
	server, _ := setupTestChiServer(t, Dependencies{Products: mockProducts})

	cases := []struct {
		query string
		want  string
	}{
		{"sort=cheapest", "sort must be one of"},
		{"price_min=abc", "price_min must be a non-negative number"},
		{"price_min=-1", "price_min must be a non-negative number"},
		{"price_min=20&price_max=10", "price_min cannot exceed price_max"},
		{"page=0", "page must be a positive integer"},
		{"pageSize=x", "pageSize must be a positive integer"},
		{"available=soon", "available must be one of"},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			res, err := http.Get(server.URL + "/api/products/category/lighting?" + tc.query)
			require.NoError(t, err)
			require.Equal(t, http.StatusBadRequest, res.StatusCode)

			env := decodeEnvelope(t, res)
			require.NotEmpty(t, env.Errors)
			assert.Contains(t, env.Errors[0], tc.want)
		})
	}
	mockProducts.AssertNotCalled(t, "QueryProductsByCategory", mock.Anything, mock.Anything)
}

func TestHTTPHandler_CreateProduct_Success(t *testing.T) {
	mockProducts := new(MockProductStorer)
	server, tokens := setupTestChiServer(t, Dependencies{Products: mockProducts})
	payload := validProductPayload()

	mockProducts.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p domain.ProductPayload) bool {
		return p.Product.Slug == "desk-lamp" && len(p.Variants) == 1 &&
			p.Variants[0].Price.Equal(decimal.RequireFromString("19.99")) && p.BuyTogether[0] == 2
	})).Return(&domain.Product{ID: 10, Title: "Desk Lamp", Slug: "desk-lamp", Available: domain.AvailabilityIn}, nil).Once()

	res := doJSON(t, http.MethodPost, server.URL+"/api/admin/products", payload, issueToken(t, tokens, 1, domain.RoleAdmin))
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var got domain.Product
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, res).Data, &got))
	assert.Equal(t, int64(10), got.ID)
	mockProducts.AssertExpectations(t)
}

func TestHTTPHandler_CreateProduct_ValidationErrors(t *testing.T) {
	mockProducts := new(MockProductStorer)
	server, tokens := setupTestChiServer(t, Dependencies{Products: mockProducts})
	token := issueToken(t, tokens, 1, domain.RoleAdmin)

	res := doJSON(t, http.MethodPost, server.URL+"/api/admin/products", map[string]interface{}{}, token)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.ElementsMatch(t, []string{
		"product is required",
		"variants must be a non-empty array",
		"categories must be a non-empty array",
		"images must be a non-empty array",
		"features must be a non-empty array",
	}, decodeEnvelope(t, res).Errors)

	payload := validProductPayload()
	payload.Product.Vendor = ""
	payload.Product.FreeShipping = nil
	payload.Product.ItemsInStock = PtrTo(-1)
	payload.Product.Available = "soon"
	zero := decimal.Zero
	payload.Variants = append(payload.Variants, domain.VariantInput{Title: "White", Price: &zero}, domain.VariantInput{VariantID: "dl-red", Title: "Red"})
	payload.Images = nil
	payload.Features = []string{""}

	res = doJSON(t, http.MethodPost, server.URL+"/api/admin/products", payload, token)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.ElementsMatch(t, []string{
		"product.vendor is required",
		"product.freeShipping is required",
		"product.itemsInStock must be at least 0",
		"product.available must be one of: in out preorder",
		"variants[1].variantId is required",
		"variants[1].price must be a number > 0",
		"variants[2].price is required",
		"images must be a non-empty array",
		"features[0] is required",
	}, decodeEnvelope(t, res).Errors)

	mockProducts.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
}

func TestHTTPHandler_CreateProduct_BuyTogetherRules(t *testing.T) {
	mockProducts := new(MockProductStorer)
	server, tokens := setupTestChiServer(t, Dependencies{Products: mockProducts})
	token := issueToken(t, tokens, 1, domain.RoleAdmin)

	cases := []struct {
		ids  []int64
		want string
	}{
		{[]int64{3, 3}, "buyTogether cannot contain duplicates"},
		{[]int64{3, 4, 5}, fmt.Sprintf("buyTogether can contain max %d items", store.MaxBuyTogether)},
		{[]int64{0}, "buyTogether[0] must be a number > 0"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			payload := validProductPayload()
			payload.BuyTogether = tc.ids
			res := doJSON(t, http.MethodPost, server.URL+"/api/admin/products", payload, token)
			require.Equal(t, http.StatusBadRequest, res.StatusCode)
			assert.Equal(t, []string{tc.want}, decodeEnvelope(t, res).Errors)
		})
	}

	// Zero stock and free shipping off are values, not missing fields.
	payload := validProductPayload()
	payload.Product.ItemsInStock = PtrTo(0)
	payload.Product.FreeShipping = PtrTo(false)
	payload.BuyTogether = nil
	mockProducts.On("CreateProduct", mock.Anything, mock.Anything).Return(&domain.Product{ID: 11}, nil).Once()
	res := doJSON(t, http.MethodPost, server.URL+"/api/admin/products", payload, token)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	res.Body.Close()
	mockProducts.AssertExpectations(t)
}

func TestHTTPHandler_CreateProduct_StoreErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"slug exists", store.ErrProductSlugExists, http.StatusConflict, "Product with this slug already exists"},
		{"unknown category", fmt.Errorf("%w: nope, gone", store.ErrInvalidCategorySlugs), http.StatusBadRequest, "Invalid category slugs: nope, gone"},
		{"bad relations", fmt.Errorf("%w: max 2 buy together products allowed", store.ErrInvalidProduct), http.StatusBadRequest, "Invalid product: max 2 buy together products allowed"},
		{"bare sentinel", store.ErrInvalidProduct, http.StatusBadRequest, "Invalid product"},
		{"database down", fmt.Errorf("store: CreateProduct failed: %w", assert.AnError), http.StatusInternalServerError, "Failed to create product"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockProducts := new(MockProductStorer)
			server, tokens := setupTestChiServer(t, Dependencies{Products: mockProducts})
			mockProducts.On("CreateProduct", mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			res := doJSON(t, http.MethodPost, server.URL+"/api/admin/products", validProductPayload(), issueToken(t, tokens, 1, domain.RoleAdmin))
			env := decodeEnvelope(t, res)
			assert.Equal(t, tc.code, res.StatusCode)
			assert.False(t, env.Success)
			assert.Equal(t, tc.message, env.Message)
			assert.NotContains(t, env.Message, "store:")
		})
	}
}

func TestHTTPHandler_UpdateProduct_NotFound(t *testing.T) {
	mockProducts := new(MockProductStorer)
	server, tokens := setupTestChiServer(t, Dependencies{Products: mockProducts})

	mockProducts.On("UpdateProduct", mock.Anything, int64(99), mock.Anything).Return(nil, store.ErrProductNotFound).Once()

	res := doJSON(t, http.MethodPut, server.URL+"/api/admin/products/99", validProductPayload(), issueToken(t, tokens, 1, domain.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res.Body.Close()
	mockProducts.AssertExpectations(t)
}

func TestHTTPHandler_GetProductByID(t *testing.T) {
	mockProducts := new(MockProductStorer)
	server, _ := setupTestChiServer(t, Dependencies{Products: mockProducts})

	detail := &domain.ProductDetail{Product: domain.Product{ID: 5, Title: "Desk Lamp"}, Categories: []string{"lighting"}}
	mockProducts.On("GetProductByID", mock.Anything, int64(5)).Return(detail, nil).Once()
	mockProducts.On("GetProductByID", mock.Anything, int64(6)).Return(nil, store.ErrProductNotFound).Once()

	res, err := http.Get(server.URL + "/api/products/5")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var got domain.ProductDetail
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, res).Data, &got))
	assert.Equal(t, []string{"lighting"}, got.Categories)

	res, err = http.Get(server.URL + "/api/products/6")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "Product not found", decodeEnvelope(t, res).Message)
}

func TestHTTPHandler_DeleteProduct(t *testing.T) {
	mockProducts := new(MockProductStorer)
	server, tokens := setupTestChiServer(t, Dependencies{Products: mockProducts})

	mockProducts.On("DeleteProduct", mock.Anything, int64(5)).Return(nil).Once()

	res := doJSON(t, http.MethodDelete, server.URL+"/api/admin/products/5", nil, issueToken(t, tokens, 1, domain.RoleAdmin))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()
	mockProducts.AssertExpectations(t)
}
