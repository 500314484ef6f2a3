package service

import (
	"context"

	"github.com/7666638403/rajgarande/internal/dto"
	"github.com/7666638403/rajgarande/internal/model"
	"github.com/7666638403/rajgarande/internal/repository"

	"github.com/google/uuid"
)

// CatalogService defines the business logic contract for products.
type CatalogService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
}

type catalogService struct {
	repo repository.ProductRepository
}

func NewCatalogService(repo repository.ProductRepository) CatalogService {
	return &catalogService{repo: repo}
}

func (s *catalogService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	p := &model.Product{
		Name:  req.Name,
		Price: req.Price,
		Stock: req.Stock,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return productToResponse(p), nil
}

func (s *catalogService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrProductNotFound
	}
	return productToResponse(p), nil
}

func (s *catalogService) List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, *productToResponse(&products[i]))
	}
	return &dto.ProductListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// Update edits the live catalog entry only. Historical bill items carry their
// own name/price snapshot and are never touched here.
func (s *catalogService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrProductNotFound
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return productToResponse(p), nil
}

func productToResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:    p.ID.String(),
		Name:  p.Name,
		Price: p.Price,
		Stock: p.Stock,
	}
}
