package api

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

const maxCategoryPageSize = 100

// --- Category Handlers ---

// CategoryInput is the create/update body for a category.
type CategoryInput struct {
	Title    string  `json:"title" validate:"required,max=255"`
	Slug     string  `json:"slug" validate:"required,max=255"`
	Image    *string `json:"image" validate:"omitempty"`
	IsActive *bool   `json:"isActive"`
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	created, err := h.deps.Categories.CreateCategory(r.Context(), &domain.Category{
		Title: input.Title,
		Slug:  input.Slug,
		Image: input.Image,
	})
	if err != nil {
		respondWithStoreError(w, "CreateCategory", err, "Failed to create category")
		return
	}
	respondOK(w, http.StatusCreated, "Category created successfully", created)
}

// ListActiveCategories serves the storefront menu.
func (h *HTTPHandler) ListActiveCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.deps.Categories.FetchCategories(r.Context())
	if err != nil {
		respondWithStoreError(w, "FetchCategories", err, "Failed to retrieve categories")
		return
	}
	respondOK(w, http.StatusOK, "Categories fetched successfully", categories)
}

// ListAllCategories pages through every category, inactive ones included.
func (h *HTTPHandler) ListAllCategories(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pagination(r, 10, maxCategoryPageSize)

	categories, totalCount, err := h.deps.Categories.ListCategories(r.Context(), store.ListCategoriesParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondWithStoreError(w, "ListCategories", err, "Failed to retrieve categories")
		return
	}
	respondOK(w, http.StatusOK, "Categories fetched successfully", map[string]interface{}{
		"categories": categories,
		"pagination": pageInfo(page, limit, totalCount),
	})
}

func (h *HTTPHandler) GetCategoryByID(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(r, "categoryId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	category, err := h.deps.Categories.GetCategoryByID(r.Context(), categoryID)
	if err != nil {
		respondWithStoreError(w, "GetCategoryByID", err, "Failed to retrieve category")
		return
	}
	respondOK(w, http.StatusOK, "Category fetched successfully", category)
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(r, "categoryId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	var input CategoryInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	updated, err := h.deps.Categories.UpdateCategory(r.Context(), &domain.Category{
		ID:       categoryID,
		Title:    input.Title,
		Slug:     input.Slug,
		Image:    input.Image,
		IsActive: isActive,
	})
	if err != nil {
		respondWithStoreError(w, "UpdateCategory", err, "Failed to update category")
		return
	}
	respondOK(w, http.StatusOK, "Category updated successfully", updated)
}

// DeleteCategory deactivates the category; its product links stay in place.
func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(r, "categoryId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	if err := h.deps.Categories.DeleteCategory(r.Context(), categoryID); err != nil {
		respondWithStoreError(w, "DeleteCategory", err, "Failed to delete category")
		return
	}
	respondOK(w, http.StatusOK, "Category status changed to inactive", nil)
}

// --- Product Handlers ---

// parseCategoryQuery reads the storefront browse parameters. Every malformed
// parameter is reported, not only the first.
func parseCategoryQuery(r *http.Request) (store.CategoryQuery, []string) {
	qParams := r.URL.Query()
	q := store.CategoryQuery{Category: chi.URLParam(r, "category")}
	var problems []string

	parsePrice := func(name string) *decimal.Decimal {
		raw := qParams.Get(name)
		if raw == "" {
			return nil
		}
		price, err := decimal.NewFromString(raw)
		if err != nil || price.IsNegative() {
			problems = append(problems, name+" must be a non-negative number")
			return nil
		}
		return &price
	}
	q.PriceMin = parsePrice("price_min")
	q.PriceMax = parsePrice("price_max")
	if q.PriceMin != nil && q.PriceMax != nil && q.PriceMin.GreaterThan(*q.PriceMax) {
		problems = append(problems, "price_min cannot exceed price_max")
	}

	parsePositive := func(name string) int {
		raw := qParams.Get(name)
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			problems = append(problems, name+" must be a positive integer")
			return 0
		}
		return n
	}
	q.Page = parsePositive("page")
	q.PageSize = parsePositive("pageSize")
	if q.PageSize > maxCategoryPageSize {
		q.PageSize = maxCategoryPageSize
	}

	q.Sort = qParams.Get("sort")
	if !store.ValidProductSort(q.Sort) {
		problems = append(problems, "sort must be one of: "+strings.Join(store.ProductSortKeys(), ", "))
	}

	if raw := qParams.Get("available"); raw != "" {
		status := domain.AvailabilityStatus(raw)
		if !status.Valid() {
			problems = append(problems, "available must be one of: in, out, preorder")
		} else {
			q.Available = &status
		}
	}
	return q, problems
}

// GetProductsByCategory serves one filtered, sorted page of a category.
// Only active categories are browsable; an inactive or unknown slug yields an
// empty page rather than a 404.
func (h *HTTPHandler) GetProductsByCategory(w http.ResponseWriter, r *http.Request) {
	q, problems := parseCategoryQuery(r)
	if len(problems) > 0 {
		respondValidation(w, problems)
		return
	}

	page, err := h.deps.Products.QueryProductsByCategory(r.Context(), q)
	if err != nil {
		respondWithStoreError(w, "QueryProductsByCategory", err, "Failed to retrieve products")
		return
	}
	respondOK(w, http.StatusOK, "Products fetched successfully", page)
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pagination(r, 10, 100)

	products, totalCount, err := h.deps.Products.ListProducts(r.Context(), store.ListProductsParams{Limit: limit, Offset: offset})
	if err != nil {
		respondWithStoreError(w, "ListProducts", err, "Failed to retrieve products")
		return
	}
	respondOK(w, http.StatusOK, "Products fetched successfully", map[string]interface{}{
		"products":   products,
		"pagination": pageInfo(page, limit, totalCount),
	})
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, err := h.deps.Products.GetProductByID(r.Context(), productID)
	if err != nil {
		respondWithStoreError(w, "GetProductByID", err, "Failed to retrieve product")
		return
	}
	respondOK(w, http.StatusOK, "Product fetched successfully", product)
}

// decodeProductPayload decodes and checks a product body, writing the 400 itself.
func (h *HTTPHandler) decodeProductPayload(w http.ResponseWriter, r *http.Request) (domain.ProductPayload, bool) {
	var payload domain.ProductPayload
	ok := h.decodeAndValidate(w, r, &payload)
	return payload, ok
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeProductPayload(w, r)
	if !ok {
		return
	}

	created, err := h.deps.Products.CreateProduct(r.Context(), payload)
	if err != nil {
		respondWithStoreError(w, "CreateProduct", err, "Failed to create product")
		return
	}
	log.Printf("INFO: Created product %d (%s)", created.ID, created.Slug)
	respondOK(w, http.StatusCreated, "Product created successfully", created)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	payload, ok := h.decodeProductPayload(w, r)
	if !ok {
		return
	}

	updated, err := h.deps.Products.UpdateProduct(r.Context(), productID, payload)
	if err != nil {
		respondWithStoreError(w, "UpdateProduct", err, "Failed to update product")
		return
	}
	respondOK(w, http.StatusOK, "Product updated successfully", updated)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	if err := h.deps.Products.DeleteProduct(r.Context(), productID); err != nil {
		respondWithStoreError(w, "DeleteProduct", err, "Failed to delete product")
		return
	}
	respondOK(w, http.StatusOK, "Product deleted successfully", nil)
}
