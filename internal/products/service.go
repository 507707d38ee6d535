package product

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/pagination"
)

// ProductRepository defines the persistence surface required by the service.
type ProductRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.Variant, error)
	CreateVariant(ctx context.Context, variant *models.Variant) (*models.Variant, error)
	UpdateVariant(ctx context.Context, variant *models.Variant) (*models.Variant, error)
	List(ctx context.Context, input ListProductsInput) ([]models.Product, *pagination.Cursor, error)
}

// Service exposes catalog reads for shoppers and CRUD for admins.
type Service interface {
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Browse(ctx context.Context, input ListProductsInput) ([]models.Product, *pagination.Cursor, error)
	AdminList(ctx context.Context, input ListProductsInput) ([]models.Product, *pagination.Cursor, error)
	Create(ctx context.Context, input CreateProductInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	Archive(ctx context.Context, id uuid.UUID) error
	AddVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*models.Variant, error)
	UpdateVariant(ctx context.Context, variantID uuid.UUID, input UpdateVariantInput) (*models.Variant, error)
}

type service struct {
	repo ProductRepository
}

// NewService builds a product service backed by the provided repository.
func NewService(repo ProductRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

// CreateProductInput carries the admin payload for a new listing.
type CreateProductInput struct {
	Title       string
	Subtitle    *string
	Description *string
	Brand       *string
	Category    *string
	Tags        []string
	Status      enums.ProductStatus
	IsFeatured  bool
	Variants    []VariantInput
}

// VariantInput carries one sellable unit of a new or existing product.
type VariantInput struct {
	SKU           string
	Label         string
	Size          *string
	Color         *string
	PricePaise    int64
	CompareAt     *int64
	StockQuantity int
}

// UpdateProductInput carries partial updates; nil fields are left untouched.
type UpdateProductInput struct {
	Title       *string
	Subtitle    *string
	Description *string
	Brand       *string
	Category    *string
	Tags        []string
	Status      *enums.ProductStatus
	IsFeatured  *bool
}

// UpdateVariantInput carries partial variant updates. Stock is excluded: all
// stock changes go through the inventory service so the ledger stays complete.
type UpdateVariantInput struct {
	Label      *string
	Size       *string
	Color      *string
	PricePaise *int64
	CompareAt  *int64
	Status     *enums.VariantStatus
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	product, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if !product.IsPurchasable() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	return product, nil
}

// Browse lists the storefront catalog. Only active listings are visible.
func (s *service) Browse(ctx context.Context, input ListProductsInput) ([]models.Product, *pagination.Cursor, error) {
	active := enums.ProductStatusActive
	input.Filters.Status = &active
	rows, next, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}
	return rows, next, nil
}

func (s *service) AdminList(ctx context.Context, input ListProductsInput) ([]models.Product, *pagination.Cursor, error) {
	rows, next, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}
	return rows, next, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	status := input.Status
	if status == "" {
		status = enums.ProductStatusDraft
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product status %q", status))
	}

	variants := make([]models.Variant, 0, len(input.Variants))
	for _, v := range input.Variants {
		variant, err := buildVariant(v)
		if err != nil {
			return nil, err
		}
		variants = append(variants, *variant)
	}

	product := &models.Product{
		Slug:        Slugify(title),
		Title:       title,
		Subtitle:    input.Subtitle,
		Description: input.Description,
		Brand:       input.Brand,
		Category:    input.Category,
		Tags:        pq.StringArray(input.Tags),
		Status:      status,
		IsFeatured:  input.IsFeatured,
		Variants:    variants,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		product.Title = title
	}
	if input.Subtitle != nil {
		product.Subtitle = input.Subtitle
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Brand != nil {
		product.Brand = input.Brand
	}
	if input.Category != nil {
		product.Category = input.Category
	}
	if input.Tags != nil {
		product.Tags = pq.StringArray(input.Tags)
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product status %q", *input.Status))
		}
		product.Status = *input.Status
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}

	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product")
	}
	return updated, nil
}

// Archive hides the product from the storefront. Existing orders keep their
// snapshotted line items, so this never cascades.
func (s *service) Archive(ctx context.Context, id uuid.UUID) error {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if product.Status == enums.ProductStatusArchived {
		return nil
	}
	product.Status = enums.ProductStatusArchived
	if _, err := s.repo.UpdateProduct(ctx, product); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "archiving product")
	}
	return nil
}

func (s *service) AddVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*models.Variant, error) {
	if _, err := s.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	variant, err := buildVariant(input)
	if err != nil {
		return nil, err
	}
	variant.ProductID = productID
	created, err := s.repo.CreateVariant(ctx, variant)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating variant")
	}
	return created, nil
}

func (s *service) UpdateVariant(ctx context.Context, variantID uuid.UUID, input UpdateVariantInput) (*models.Variant, error) {
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	variant, err := s.repo.FindVariantByID(ctx, variantID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading variant")
	}

	if input.Label != nil {
		label := strings.TrimSpace(*input.Label)
		if label == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "label cannot be empty")
		}
		variant.Label = label
	}
	if input.Size != nil {
		variant.Size = input.Size
	}
	if input.Color != nil {
		variant.Color = input.Color
	}
	if input.PricePaise != nil {
		if *input.PricePaise < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
		}
		variant.PricePaise = *input.PricePaise
	}
	if input.CompareAt != nil {
		variant.CompareAtPricePaise = input.CompareAt
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid variant status %q", *input.Status))
		}
		variant.Status = *input.Status
	}

	updated, err := s.repo.UpdateVariant(ctx, variant)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating variant")
	}
	return updated, nil
}

func buildVariant(input VariantInput) (*models.Variant, error) {
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	label := strings.TrimSpace(input.Label)
	if label == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "label is required")
	}
	if input.PricePaise < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}
	return &models.Variant{
		SKU:                 sku,
		Label:               label,
		Size:                input.Size,
		Color:               input.Color,
		PricePaise:          input.PricePaise,
		CompareAtPricePaise: input.CompareAt,
		Currency:            enums.CurrencyINR,
		StockQuantity:       input.StockQuantity,
		Status:              enums.VariantStatusActive,
	}, nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a title into a URL slug.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
