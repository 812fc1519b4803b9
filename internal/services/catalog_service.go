package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"invtrack/internal/domain"
	"invtrack/internal/repos"
	"invtrack/internal/validate"
)

type CatalogService struct {
	Cats  *repos.CategoryRepo
	Prods *repos.ProductRepo
}

func NewCatalogService(cats *repos.CategoryRepo, prods *repos.ProductRepo) *CatalogService {
	return &CatalogService{Cats: cats, Prods: prods}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	out, err := s.Cats.List(ctx)
	return out, backend("list categories", err)
}

func categoryName(name string) (string, error) {
	n, ok := validate.Required(name)
	if !ok || len(n) > 100 {
		return "", &ValidationError{Fields: []validate.FieldError{{Field: "name", Message: "is required"}}}
	}
	return n, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	n, err := categoryName(name)
	if err != nil {
		return domain.Category{}, err
	}
	c := domain.Category{ID: uuid.NewString(), Name: n, CreatedAt: domain.Now()}
	if err := s.Cats.Create(ctx, c); err != nil {
		if errors.Is(err, repos.ErrDuplicate) {
			return domain.Category{}, conflict("category already exists")
		}
		return domain.Category{}, backend("create category", err)
	}
	return c, nil
}

func (s *CatalogService) RenameCategory(ctx context.Context, id, name string) error {
	n, err := categoryName(name)
	if err != nil {
		return err
	}
	switch err := s.Cats.Rename(ctx, id, n); {
	case errors.Is(err, repos.ErrDuplicate):
		return conflict("category already exists")
	case errors.Is(err, repos.ErrNotFound):
		return notFound("category")
	default:
		return backend("rename category", err)
	}
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	err := s.Cats.Delete(ctx, id)
	if errors.Is(err, repos.ErrNotFound) {
		return notFound("category")
	}
	return backend("delete category", err)
}

type ProductFilter struct {
	Query    string
	Category string
}

type ProductInput struct {
	Name        string
	Description string
	Quantity    int
	Category    string
	Brand       string
	Model       string
	ImageURL    string
}

func (in *ProductInput) Validate() []validate.FieldError {
	var errs validate.Errors
	var ok bool
	in.Name, ok = validate.Required(in.Name)
	errs.Check(ok, "name", "is required")
	in.Description, ok = validate.Required(in.Description)
	errs.Check(ok, "description", "is required")
	in.Category, ok = validate.Required(in.Category)
	errs.Check(ok, "category", "is required")
	errs.Check(in.Quantity >= 0, "quantity", "cannot be negative")
	in.ImageURL, ok = validate.ImageURL(in.ImageURL)
	errs.Check(ok, "imageUrl", "must be an http(s) URL")
	in.Brand = strings.TrimSpace(in.Brand)
	in.Model = strings.TrimSpace(in.Model)
	return errs
}

// ListProducts returns products ordered by name. A query that fails the
// search character rules yields no results.
func (s *CatalogService) ListProducts(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	q := ""
	if strings.TrimSpace(f.Query) != "" {
		var ok bool
		if q, ok = validate.Q(f.Query); !ok {
			return []domain.Product{}, nil
		}
	}
	out, err := s.Prods.Search(ctx, q, strings.TrimSpace(f.Category))
	return out, backend("list products", err)
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := s.Prods.Get(ctx, id)
	if errors.Is(err, repos.ErrNotFound) {
		return p, notFound("product")
	}
	return p, backend("get product", err)
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	if err := invalid(in.Validate()); err != nil {
		return domain.Product{}, err
	}
	now := domain.Now()
	p := domain.Product{
		ID: uuid.NewString(), Name: in.Name, Description: in.Description, Quantity: in.Quantity,
		Category: in.Category, Brand: in.Brand, Model: in.Model, ImageURL: in.ImageURL,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.Prods.Create(ctx, p); err != nil {
		return domain.Product{}, backend("create product", err)
	}
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductInput) (domain.Product, error) {
	if err := invalid(in.Validate()); err != nil {
		return domain.Product{}, err
	}
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return p, err
	}
	p.Name, p.Description, p.Quantity, p.Category = in.Name, in.Description, in.Quantity, in.Category
	p.Brand, p.Model, p.ImageURL = in.Brand, in.Model, in.ImageURL
	p.UpdatedAt = domain.Now()
	if err := s.Prods.Update(ctx, p); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return p, notFound("product")
		}
		return p, backend("update product", err)
	}
	return p, nil
}

// DeleteProduct is allowed even when equipment still references the product.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	err := s.Prods.Delete(ctx, id)
	if errors.Is(err, repos.ErrNotFound) {
		return notFound("product")
	}
	return backend("delete product", err)
}
