package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"storefront-service/internal/domain"
)

// ErrInvalidProduct is returned when a payload that skipped validation breaks a relation rule.
var ErrInvalidProduct = errors.New("store: invalid product relations")

const (
	DefaultProductSort = "best-selling"
	DefaultPageSize    = 12
	MaxBuyTogether     = 2
	MaxRelatedProducts = 6

	productSlugConstraint = "products_slug_key"
)

// productSortOrders is the closed set of ORDER BY expressions for category browsing.
var productSortOrders = map[string]string{
	"title-ascending":    "p.title ASC",
	"title-descending":   "p.title DESC",
	"price-ascending":    "MIN(pv.price) ASC",
	"price-descending":   "MAX(pv.price) DESC",
	"created-ascending":  "p.created_at ASC",
	"created-descending": "p.created_at DESC",
	"best-selling":       "p.sold DESC",
}

// ValidProductSort reports whether sort is a known sort key. Empty means the default.
func ValidProductSort(sort string) bool {
	if sort == "" {
		return true
	}
	_, ok := productSortOrders[sort]
	return ok
}

// ProductSortKeys lists the accepted sort keys.
func ProductSortKeys() []string {
	return []string{
		"title-ascending", "title-descending",
		"price-ascending", "price-descending",
		"created-ascending", "created-descending",
		"best-selling",
	}
}

// categoryProductPredicates builds the filter shared by the count and data phases.
func categoryProductPredicates(q CategoryQuery) *Predicates {
	where := &Predicates{}
	where.Add("c.is_active = TRUE")
	if q.Category != "" {
		where.Add("c.slug = ?", q.Category)
	}
	if q.Available != nil {
		where.Add("p.available = ?", string(*q.Available))
	}
	if q.PriceMin != nil || q.PriceMax != nil {
		cond := "EXISTS (SELECT 1 FROM product_variants fv WHERE fv.product_id = p.id"
		var args []interface{}
		if q.PriceMin != nil {
			cond += " AND fv.price >= ?"
			args = append(args, *q.PriceMin)
		}
		if q.PriceMax != nil {
			cond += " AND fv.price <= ?"
			args = append(args, *q.PriceMax)
		}
		where.Add(cond+")", args...)
	}
	return where
}

const categoryProductsFrom = `
		FROM products p
		JOIN product_categories pc ON pc.product_id = p.id
		JOIN categories c ON c.id = pc.category_id
		JOIN product_variants pv ON pv.product_id = p.id`

// QueryProductsByCategory returns one page of products in an active category.
// A deactivated category matches nothing, so it browses as an empty page.
// The count runs over the full filtered set so pagination reflects every match.
func (s *PostgresStore) QueryProductsByCategory(ctx context.Context, q CategoryQuery) (*domain.ProductPage, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.Sort == "" {
		q.Sort = DefaultProductSort
	}
	orderBy, ok := productSortOrders[q.Sort]
	if !ok {
		return nil, fmt.Errorf("store: unknown sort %q", q.Sort)
	}

	where := categoryProductPredicates(q)
	page := &domain.ProductPage{
		Products:   []domain.ProductSummary{},
		Pagination: domain.Pagination{CurrentPage: q.Page, PageSize: q.PageSize},
	}

	countQuery := "SELECT COUNT(DISTINCT p.id)" + categoryProductsFrom + where.Where()
	if err := s.db.QueryRowContext(ctx, countQuery, where.Args()...).Scan(&page.Pagination.TotalItems); err != nil {
		return nil, fmt.Errorf("store: QueryProductsByCategory failed to count products: %w", err)
	}
	total := page.Pagination.TotalItems
	page.Pagination.TotalPages = (total + q.PageSize - 1) / q.PageSize

	offset := (q.Page - 1) * q.PageSize
	if total == 0 || offset >= total {
		return page, nil
	}

	limitClause, args := where.Page(q.PageSize, offset)
	dataQuery := `
		SELECT p.id, p.title, p.slug, p.vendor,
			COALESCE(ARRAY_AGG(DISTINCT pi.image_url) FILTER (WHERE pi.image_url IS NOT NULL), '{}') AS images,
			JSON_AGG(DISTINCT JSONB_BUILD_OBJECT('id', pv.variant_id, 'title', pv.title, 'price', pv.price)) AS variants,
			MIN(pv.price) AS price_min,
			MAX(pv.price) AS price_max` +
		categoryProductsFrom + `
		LEFT JOIN product_images pi ON pi.product_id = p.id` +
		where.Where() + `
		GROUP BY p.id
		ORDER BY ` + orderBy + `, p.id ASC` + limitClause

	rows, err := s.db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("store: QueryProductsByCategory failed to query products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p            domain.ProductSummary
			variantsJSON []byte
			minPrice     decimal.Decimal
			maxPrice     decimal.Decimal
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Vendor, pq.Array(&p.Images), &variantsJSON, &minPrice, &maxPrice); err != nil {
			return nil, fmt.Errorf("store: QueryProductsByCategory failed to scan product row: %w", err)
		}
		if err := json.Unmarshal(variantsJSON, &p.Variants); err != nil {
			return nil, fmt.Errorf("store: QueryProductsByCategory failed to decode variants: %w", err)
		}
		if p.Images == nil {
			p.Images = []string{}
		}
		p.Price = []decimal.Decimal{minPrice, maxPrice}
		page.Products = append(page.Products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: QueryProductsByCategory iteration error: %w", err)
	}
	return page, nil
}

const productColumns = `id, title, slug, description, general_category, vendor, free_shipping, available, sold, items_in_stock, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }, p *domain.Product) error {
	return row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.GeneralCategory, &p.Vendor,
		&p.FreeShipping, &p.Available, &p.Sold, &p.ItemsInStock, &p.CreatedAt, &p.UpdatedAt,
	)
}

// ProductSlugTaken reports whether another product (not excludeID) already uses slug.
func (s *PostgresStore) ProductSlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var taken bool
	query := `SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1 AND id <> $2);`
	if err := s.db.QueryRowContext(ctx, query, slug, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("store: ProductSlugTaken failed: %w", err)
	}
	return taken, nil
}

func productRowArgs(in *domain.ProductInput) []interface{} {
	available := in.Available
	if available == "" {
		available = domain.AvailabilityIn
	}
	freeShipping := in.FreeShipping != nil && *in.FreeShipping
	itemsInStock := 0
	if in.ItemsInStock != nil {
		itemsInStock = *in.ItemsInStock
	}
	return []interface{}{
		in.Title, in.Slug, in.Description, in.GeneralCategory, in.Vendor,
		freeShipping, string(available), itemsInStock,
	}
}

// CreateProduct inserts the product and all its relations in one transaction,
// then rebuilds its related-products set.
func (s *PostgresStore) CreateProduct(ctx context.Context, payload domain.ProductPayload) (*domain.Product, error) {
	if payload.Product == nil {
		return nil, ErrInvalidProduct
	}
	taken, err := s.ProductSlugTaken(ctx, payload.Product.Slug, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrProductSlugExists
	}

	var created domain.Product
	err = s.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO products (title, slug, description, general_category, vendor, free_shipping, available, items_in_stock)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING ` + productColumns + `;`
		if err := scanProduct(tx.QueryRowContext(ctx, query, productRowArgs(payload.Product)...), &created); err != nil {
			if isUniqueViolation(err, productSlugConstraint) {
				return ErrProductSlugExists
			}
			return fmt.Errorf("store: CreateProduct failed to insert product: %w", err)
		}
		return replaceProductRelations(ctx, tx, created.ID, payload)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateProduct overwrites the product row and replaces every relation.
func (s *PostgresStore) UpdateProduct(ctx context.Context, id int64, payload domain.ProductPayload) (*domain.Product, error) {
	if payload.Product == nil {
		return nil, ErrInvalidProduct
	}
	taken, err := s.ProductSlugTaken(ctx, payload.Product.Slug, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrProductSlugExists
	}

	var updated domain.Product
	err = s.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE products
			SET title = $1, slug = $2, description = $3, general_category = $4, vendor = $5,
				free_shipping = $6, available = $7, items_in_stock = $8, updated_at = NOW()
			WHERE id = $9
			RETURNING ` + productColumns + `;`
		args := append(productRowArgs(payload.Product), id)
		if err := scanProduct(tx.QueryRowContext(ctx, query, args...), &updated); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProductNotFound
			}
			if isUniqueViolation(err, productSlugConstraint) {
				return ErrProductSlugExists
			}
			return fmt.Errorf("store: UpdateProduct failed to update product: %w", err)
		}
		return replaceProductRelations(ctx, tx, id, payload)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

var productRelationTables = []string{
	"product_categories",
	"product_variants",
	"product_images",
	"product_features",
	"product_buy_together",
}

// replaceProductRelations drops every relation row of productID and writes the payload's set.
func replaceProductRelations(ctx context.Context, tx *sql.Tx, productID int64, payload domain.ProductPayload) error {
	for _, table := range productRelationTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE product_id = $1;", productID); err != nil {
			return fmt.Errorf("store: failed to clear %s: %w", table, err)
		}
	}
	if err := attachCategories(ctx, tx, productID, payload.Categories); err != nil {
		return err
	}
	if err := attachVariants(ctx, tx, productID, payload.Variants); err != nil {
		return err
	}
	for _, url := range payload.Images {
		if _, err := tx.ExecContext(ctx, `INSERT INTO product_images (product_id, image_url) VALUES ($1, $2);`, productID, url); err != nil {
			return fmt.Errorf("store: failed to attach image: %w", err)
		}
	}
	for _, feature := range payload.Features {
		if _, err := tx.ExecContext(ctx, `INSERT INTO product_features (product_id, feature_text) VALUES ($1, $2);`, productID, feature); err != nil {
			return fmt.Errorf("store: failed to attach feature: %w", err)
		}
	}
	if err := attachBuyTogether(ctx, tx, productID, payload.BuyTogether); err != nil {
		return err
	}
	return regenerateRelatedProducts(ctx, tx, productID)
}

func attachCategories(ctx context.Context, tx *sql.Tx, productID int64, slugs []string) error {
	if len(slugs) == 0 {
		return nil
	}
	rows, err := tx.QueryContext(ctx, `SELECT id, slug FROM categories WHERE slug = ANY($1);`, pq.Array(slugs))
	if err != nil {
		return fmt.Errorf("store: failed to resolve category slugs: %w", err)
	}
	found := make(map[string]int64, len(slugs))
	for rows.Next() {
		var (
			id   int64
			slug string
		)
		if err := rows.Scan(&id, &slug); err != nil {
			rows.Close()
			return fmt.Errorf("store: failed to scan category: %w", err)
		}
		found[slug] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: category iteration error: %w", err)
	}

	var missing []string
	for _, slug := range slugs {
		if _, ok := found[slug]; !ok {
			missing = append(missing, slug)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCategorySlugs, strings.Join(missing, ", "))
	}

	for _, slug := range slugs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO product_categories (product_id, category_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;`,
			productID, found[slug])
		if err != nil {
			return fmt.Errorf("store: failed to attach category %s: %w", slug, err)
		}
	}
	return nil
}

func attachVariants(ctx context.Context, tx *sql.Tx, productID int64, variants []domain.VariantInput) error {
	if len(variants) == 0 {
		return fmt.Errorf("%w: product must have at least one variant", ErrInvalidProduct)
	}
	for _, v := range variants {
		if v.Price == nil || !v.Price.IsPositive() {
			return fmt.Errorf("%w: variant %s price must be > 0", ErrInvalidProduct, v.VariantID)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO product_variants (product_id, variant_id, title, price) VALUES ($1, $2, $3, $4);`,
			productID, v.VariantID, v.Title, *v.Price)
		if err != nil {
			return fmt.Errorf("store: failed to attach variant %s: %w", v.VariantID, err)
		}
	}
	return nil
}

func attachBuyTogether(ctx context.Context, tx *sql.Tx, productID int64, ids []int64) error {
	if len(ids) > MaxBuyTogether {
		return fmt.Errorf("%w: max %d buy together products allowed", ErrInvalidProduct, MaxBuyTogether)
	}
	for _, other := range ids {
		if other == productID {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO product_buy_together (product_id, buy_together_product_id) VALUES ($1, $2);`,
			productID, other)
		if err != nil {
			return fmt.Errorf("store: failed to attach buy together product %d: %w", other, err)
		}
	}
	return nil
}

// regenerateRelatedProducts replaces the related set with the products sharing the most categories.
func regenerateRelatedProducts(ctx context.Context, tx *sql.Tx, productID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_related WHERE product_id = $1;`, productID); err != nil {
		return fmt.Errorf("store: failed to clear related products: %w", err)
	}
	query := `
		INSERT INTO product_related (product_id, related_product_id)
		SELECT $1, p2.id
		FROM product_categories pc1
		JOIN product_categories pc2 ON pc1.category_id = pc2.category_id
		JOIN products p2 ON pc2.product_id = p2.id
		WHERE pc1.product_id = $1 AND p2.id <> $1
		GROUP BY p2.id
		ORDER BY COUNT(*) DESC
		LIMIT $2;
	`
	if _, err := tx.ExecContext(ctx, query, productID, MaxRelatedProducts); err != nil {
		return fmt.Errorf("store: failed to regenerate related products: %w", err)
	}
	return nil
}

// GetProductByID assembles the product page: base row, relations and cross-sell cards.
// Category slugs are returned whether or not the category is still active.
func (s *PostgresStore) GetProductByID(ctx context.Context, id int64) (*domain.ProductDetail, error) {
	detail := &domain.ProductDetail{}
	err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1;`, id), &detail.Product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductByID failed to scan row: %w", err)
	}

	if detail.Categories, err = s.GetProductCategories(ctx, id); err != nil {
		return nil, err
	}
	if detail.Images, err = s.queryStrings(ctx, `SELECT image_url FROM product_images WHERE product_id = $1 ORDER BY id;`, id); err != nil {
		return nil, err
	}
	if detail.Features, err = s.queryStrings(ctx, `SELECT feature_text FROM product_features WHERE product_id = $1 ORDER BY id;`, id); err != nil {
		return nil, err
	}
	if detail.Variants, err = s.productVariants(ctx, id); err != nil {
		return nil, err
	}
	detail.Price = priceRange(detail.Variants)

	if detail.BuyTogether, err = s.linkedSummaries(ctx, "product_buy_together", "buy_together_product_id", id); err != nil {
		return nil, err
	}
	if detail.RelatedProducts, err = s.linkedSummaries(ctx, "product_related", "related_product_id", id); err != nil {
		return nil, err
	}
	return detail, nil
}

// GetProductCategories returns the slugs of every category attached to the product.
func (s *PostgresStore) GetProductCategories(ctx context.Context, productID int64) ([]string, error) {
	return s.queryStrings(ctx, `
		SELECT c.slug
		FROM categories c
		JOIN product_categories pc ON c.id = pc.category_id
		WHERE pc.product_id = $1
		ORDER BY c.id;`, productID)
}

func (s *PostgresStore) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query failed: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("store: failed to scan value: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) productVariants(ctx context.Context, productID int64) ([]domain.Variant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT variant_id, title, price FROM product_variants WHERE product_id = $1 ORDER BY id;`, productID)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query variants: %w", err)
	}
	defer rows.Close()

	variants := []domain.Variant{}
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.VariantID, &v.Title, &v.Price); err != nil {
			return nil, fmt.Errorf("store: failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// linkedSummaries loads product cards through a link table. table and column are package constants.
func (s *PostgresStore) linkedSummaries(ctx context.Context, table, column string, productID int64) ([]domain.ProductSummary, error) {
	query := `
		SELECT p.id, p.title, p.vendor,
			COALESCE((SELECT ARRAY_AGG(pi.image_url ORDER BY pi.id) FROM product_images pi WHERE pi.product_id = p.id), '{}') AS images,
			COALESCE((SELECT JSON_AGG(JSON_BUILD_OBJECT('id', pv.variant_id, 'title', pv.title, 'price', pv.price) ORDER BY pv.id)
				FROM product_variants pv WHERE pv.product_id = p.id), '[]') AS variants
		FROM ` + table + ` l
		JOIN products p ON p.id = l.` + column + `
		WHERE l.product_id = $1
		ORDER BY p.id;`
	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query %s: %w", table, err)
	}
	defer rows.Close()

	out := []domain.ProductSummary{}
	for rows.Next() {
		var (
			p            domain.ProductSummary
			variantsJSON []byte
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Vendor, pq.Array(&p.Images), &variantsJSON); err != nil {
			return nil, fmt.Errorf("store: failed to scan %s row: %w", table, err)
		}
		if err := json.Unmarshal(variantsJSON, &p.Variants); err != nil {
			return nil, fmt.Errorf("store: failed to decode %s variants: %w", table, err)
		}
		if p.Images == nil {
			p.Images = []string{}
		}
		p.Price = priceRange(p.Variants)
		out = append(out, p)
	}
	return out, rows.Err()
}

func priceRange(variants []domain.Variant) []decimal.Decimal {
	if len(variants) == 0 {
		return []decimal.Decimal{}
	}
	lo, hi := variants[0].Price, variants[0].Price
	for _, v := range variants[1:] {
		if v.Price.LessThan(lo) {
			lo = v.Price
		}
		if v.Price.GreaterThan(hi) {
			hi = v.Price
		}
	}
	return []decimal.Decimal{lo, hi}
}

// ListProducts returns base product rows ordered by id.
func (s *PostgresStore) ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, int, error) {
	var totalCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products;`).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to count products: %w", err)
	}
	if totalCount == 0 {
		return []domain.Product{}, 0, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id LIMIT $1 OFFSET $2;`, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, params.Limit)
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, 0, fmt.Errorf("store: ListProducts failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts iteration error: %w", err)
	}
	return products, totalCount, nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}
