package product

import (
	"context"
	"errors"

	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

// List returns active products, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListActive(ctx, limit, offset)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrProductNotFound
	}
	return p, err
}
