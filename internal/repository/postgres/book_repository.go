package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shelfScout/domain"
)

type BookRepository struct {
	DB *gorm.DB
}

func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{DB: db}
}

func (r *BookRepository) ListBooks(ctx context.Context) ([]domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var out []domain.Book
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	return out, nil
}

func (r *BookRepository) ListBooksChangedSince(ctx context.Context, since time.Time) ([]domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var out []domain.Book
	err := r.DB.WithContext(ctx).
		Where("updated_at >= ?", since).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query changed books: %w", err)
	}
	return out, nil
}

// UpsertBooks ingests catalog rows from the upstream book service.
func (r *BookRepository) UpsertBooks(ctx context.Context, books []domain.Book) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if len(books) == 0 {
		return nil
	}

	if err := r.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		},
	).Create(&books).Error; err != nil {
		return fmt.Errorf("failed to upsert books: %w", err)
	}
	return nil
}
