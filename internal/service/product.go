package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"catalogapi/internal/asset"
	"catalogapi/internal/model"
	"catalogapi/internal/repository"
)

// PageSize is the fixed number of products per listing page.
const PageSize = 2

// maxPage keeps the listing offset within int range.
const maxPage = math.MaxInt/PageSize - 1

// ProductPage is one page of a product listing with its paging metadata.
type ProductPage struct {
	Items       []model.Product `json:"data"`
	Total       int             `json:"total"`
	PerPage     int             `json:"per_page"`
	CurrentPage int             `json:"current_page"`
	LastPage    int             `json:"last_page"`
	From        int             `json:"from"`
	To          int             `json:"to"`
}

// ProductService defines the catalog use cases.
type ProductService interface {
	// List returns page (1-based) of products newest first, optionally filtered by a
	// case-insensitive substring of the name. Pages below 1 are clamped to 1.
	List(ctx context.Context, search string, page int) (*ProductPage, error)

	// Create validates input, stores the image payload if one is given and persists the product.
	Create(ctx context.Context, in model.ProductInput) (*model.Product, error)

	// Get returns a single product by its ID.
	Get(ctx context.Context, id string) (*model.Product, error)

	// Update overwrites a product. A new image is stored only when in.Image differs from the
	// stored filename; the previous file is then removed best-effort.
	Update(ctx context.Context, id string, in model.ProductInput) (*model.Product, error)

	// Delete removes the product and, best-effort, its image.
	Delete(ctx context.Context, id string) error
}

type productService struct {
	repo     repository.ProductRepository
	assets   asset.Manager
	validate *validator.Validate
}

// NewProductService constructs a new ProductService.
func NewProductService(repo repository.ProductRepository, assets asset.Manager) ProductService {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return &productService{repo: repo, assets: assets, validate: v}
}

func (s *productService) List(ctx context.Context, search string, page int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	offset := (page - 1) * PageSize

	res, err := s.repo.List(ctx, repository.ProductFilter{
		Search:    strings.TrimSpace(search),
		PageQuery: repository.PageQuery{Limit: PageSize, Offset: offset},
	})
	if err != nil {
		return nil, err
	}

	out := &ProductPage{
		Items:       res.Items,
		Total:       res.Total,
		PerPage:     PageSize,
		CurrentPage: page,
		LastPage:    max(1, (res.Total+PageSize-1)/PageSize),
	}
	if len(res.Items) > 0 {
		out.From = offset + 1
		out.To = offset + len(res.Items)
	}
	return out, nil
}

func (s *productService) Create(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	in = normalize(in)
	if err := s.check(in); err != nil {
		return nil, err
	}

	image := model.DefaultImage
	if in.Image != "" && in.Image != model.DefaultImage {
		name, err := s.assets.Store(ctx, in.Image)
		if err != nil {
			return nil, fmt.Errorf("store image: %w", err)
		}
		image = name
	}

	now := time.Now().UTC()
	p := &model.Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Type:        in.Type,
		Quantity:    in.Quantity,
		Price:       in.Price,
		Image:       image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	stored, err := s.repo.Create(ctx, p)
	if err != nil {
		// Rollback: the record never referenced the new file.
		if !p.HasDefaultImage() {
			s.assets.RemoveBestEffort(ctx, p.Image)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

func (s *productService) Get(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	return s.find(ctx, id)
}

func (s *productService) Update(ctx context.Context, id string, in model.ProductInput) (*model.Product, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	in = normalize(in)
	if err := s.check(in); err != nil {
		return nil, err
	}

	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	old := *p
	var newImage string
	switch {
	case in.Image == "" || in.Image == old.Image:
	case in.Image == model.DefaultImage:
		p.Image = model.DefaultImage
	default:
		newImage, err = s.assets.Store(ctx, in.Image)
		if err != nil {
			return nil, fmt.Errorf("store image: %w", err)
		}
		p.Image = newImage
	}

	p.Name = in.Name
	p.Description = in.Description
	p.Type = in.Type
	p.Quantity = in.Quantity
	p.Price = in.Price
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, p); err != nil {
		if newImage != "" {
			s.assets.RemoveBestEffort(ctx, newImage)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db update failed: %w", err)
	}

	if p.Image != old.Image && !old.HasDefaultImage() {
		if !s.assets.RemoveBestEffort(ctx, old.Image) {
			zap.L().Warn("previous product image left in asset store",
				zap.String("product_id", p.ID),
				zap.String("filename", old.Image),
			)
		}
	}
	return p, nil
}

func (s *productService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	p, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("db delete failed: %w", err)
	}
	if !p.HasDefaultImage() && !s.assets.RemoveBestEffort(ctx, p.Image) {
		zap.L().Warn("deleted product image left in asset store",
			zap.String("product_id", p.ID),
			zap.String("filename", p.Image),
		)
	}
	return nil
}

func (s *productService) find(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// check runs the struct validation rules and reports every failing field.
func (s *productService) check(in model.ProductInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &ValidationError{Fields: fields}
}

func normalize(in model.ProductInput) model.ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Image = strings.TrimSpace(in.Image)
	if in.Type != nil {
		t := strings.TrimSpace(*in.Type)
		if t == "" {
			in.Type = nil
		} else {
			in.Type = &t
		}
	}
	return in
}
