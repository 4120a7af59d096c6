package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/internal/domain"
)

const (
	categoryColumns        = `id, title, slug, image, is_active, created_at, updated_at`
	categorySlugConstraint = "categories_slug_key"
)

func scanCategory(row interface{ Scan(...interface{}) error }, c *domain.Category) error {
	if err := row.Scan(&c.ID, &c.Title, &c.Slug, &c.Image, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return err
	}
	c.Link = c.Slug
	return nil
}

// CategorySlugTaken reports whether another category (not excludeID) already uses slug.
func (s *PostgresStore) CategorySlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var taken bool
	query := `SELECT EXISTS(SELECT 1 FROM categories WHERE slug = $1 AND id <> $2);`
	if err := s.db.QueryRowContext(ctx, query, slug, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("store: CategorySlugTaken failed: %w", err)
	}
	return taken, nil
}

func (s *PostgresStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	taken, err := s.CategorySlugTaken(ctx, category.Slug, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrCategorySlugExists
	}

	query := `
		INSERT INTO categories (title, slug, image)
		VALUES ($1, $2, $3)
		RETURNING ` + categoryColumns + `;`
	var created domain.Category
	if err := scanCategory(s.db.QueryRowContext(ctx, query, category.Title, category.Slug, category.Image), &created); err != nil {
		if isUniqueViolation(err, categorySlugConstraint) {
			return nil, ErrCategorySlugExists
		}
		return nil, fmt.Errorf("store: CreateCategory failed to scan row: %w", err)
	}
	return &created, nil
}

// FetchCategories returns the storefront menu: active categories only, oldest first.
func (s *PostgresStore) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE is_active = TRUE ORDER BY id;`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: FetchCategories failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := scanCategory(rows, &c); err != nil {
			return nil, fmt.Errorf("store: FetchCategories failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: FetchCategories iteration error: %w", err)
	}
	return categories, nil
}

// ListCategories pages over every category, inactive ones included, for the admin surface.
func (s *PostgresStore) ListCategories(ctx context.Context, params ListCategoriesParams) ([]domain.Category, int, error) {
	var totalCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories;`).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories failed to count categories: %w", err)
	}
	if totalCount == 0 {
		return []domain.Category{}, 0, nil
	}

	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY id LIMIT $1 OFFSET $2;`
	rows, err := s.db.QueryContext(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, params.Limit)
	for rows.Next() {
		var c domain.Category
		if err := scanCategory(rows, &c); err != nil {
			return nil, 0, fmt.Errorf("store: ListCategories failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListCategories iteration error: %w", err)
	}
	return categories, totalCount, nil
}

// GetCategoryByID returns the category whether or not it is active.
func (s *PostgresStore) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1;`
	var category domain.Category
	if err := scanCategory(s.db.QueryRowContext(ctx, query, id), &category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryByID failed to scan row: %w", err)
	}
	return &category, nil
}

// UpdateCategory overwrites title, slug, image and is_active.
func (s *PostgresStore) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	taken, err := s.CategorySlugTaken(ctx, category.Slug, category.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrCategorySlugExists
	}

	query := `
		UPDATE categories
		SET title = $1, slug = $2, image = $3, is_active = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING ` + categoryColumns + `;`
	var updated domain.Category
	err = scanCategory(s.db.QueryRowContext(ctx, query, category.Title, category.Slug, category.Image, category.IsActive, category.ID), &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		if isUniqueViolation(err, categorySlugConstraint) {
			return nil, ErrCategorySlugExists
		}
		return nil, fmt.Errorf("store: UpdateCategory failed to scan row: %w", err)
	}
	return &updated, nil
}

// DeleteCategory hides the category. Product associations are kept.
func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64) error {
	query := `UPDATE categories SET is_active = FALSE, updated_at = NOW() WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to execute update: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
