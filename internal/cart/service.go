package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/auth"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
)

// CartRepository is the persistence surface the service needs.
type CartRepository interface {
	FindActive(ctx context.Context, ident auth.Identity) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	FindItemByVariant(ctx context.Context, cartID uuid.UUID, variantID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	UpdateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
}

// productReader loads catalog rows when items are added or changed.
type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// AddItemInput adds one variant to the caller's cart. VariantID may be nil
// when the product has a single variant.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// Service exposes cart reads and mutations for shoppers and guests.
type Service interface {
	Get(ctx context.Context, ident auth.Identity) (*models.Cart, error)
	AddItem(ctx context.Context, ident auth.Identity, input AddItemInput) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, ident auth.Identity, itemID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, ident auth.Identity, itemID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, ident auth.Identity) error
}

type service struct {
	repo         CartRepository
	products     productReader
	maxQtyPerRow int
}

// NewService builds the cart service. maxQtyPerRow of zero disables the
// per-row quantity cap.
func NewService(repo CartRepository, products productReader, maxQtyPerRow int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	return &service{
		repo:         repo,
		products:     products,
		maxQtyPerRow: maxQtyPerRow,
	}, nil
}

// Get returns the caller's active cart, creating an empty one on first use.
func (s *service) Get(ctx context.Context, ident auth.Identity) (*models.Cart, error) {
	return s.findOrCreate(ctx, ident)
}

func (s *service) AddItem(ctx context.Context, ident auth.Identity, input AddItemInput) (*models.Cart, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if !product.IsPurchasable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	variant, issueCode := resolveVariant(product, input.VariantID)
	if issueCode != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, variantIssueMessage(issueCode, product.Title)).
			WithDetails(map[string]any{"code": issueCode})
	}

	cartRecord, err := s.findOrCreate(ctx, ident)
	if err != nil {
		return nil, err
	}
	if !cartRecord.IsMutable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is no longer active")
	}

	existing, err := s.repo.FindItemByVariant(ctx, cartRecord.ID, variant.ID)
	if err != nil && !IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}

	if existing != nil {
		newQty := existing.Quantity + input.Quantity
		if err := s.checkQuantity(newQty); err != nil {
			return nil, err
		}
		if variant.StockQuantity < newQty {
			return nil, insufficientStock(product.Title, variant.StockQuantity)
		}
		existing.Quantity = newQty
		existing.UnitPricePaise = variant.PricePaise
		if _, err := s.repo.UpdateItem(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
		}
	} else {
		if err := s.checkQuantity(input.Quantity); err != nil {
			return nil, err
		}
		if variant.StockQuantity < input.Quantity {
			return nil, insufficientStock(product.Title, variant.StockQuantity)
		}
		variantID := variant.ID
		item := &models.CartItem{
			CartID:         cartRecord.ID,
			ProductID:      product.ID,
			VariantID:      &variantID,
			Quantity:       input.Quantity,
			UnitPricePaise: variant.PricePaise,
		}
		if _, err := s.repo.CreateItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding cart item")
		}
	}

	reloaded, err := s.repo.FindByID(ctx, cartRecord.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading cart")
	}
	return reloaded, nil
}

func (s *service) UpdateItemQuantity(ctx context.Context, ident auth.Identity, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if err := s.checkQuantity(quantity); err != nil {
		return nil, err
	}

	cartRecord, err := s.requireActive(ctx, ident)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItem(ctx, cartRecord.ID, itemID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}

	product, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	variant, issueCode := resolveVariant(product, item.VariantID)
	if issueCode != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, variantIssueMessage(issueCode, product.Title)).
			WithDetails(map[string]any{"code": issueCode})
	}
	if variant.StockQuantity < quantity {
		return nil, insufficientStock(product.Title, variant.StockQuantity)
	}

	item.Quantity = quantity
	item.UnitPricePaise = variant.PricePaise
	if _, err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
	}

	reloaded, err := s.repo.FindByID(ctx, cartRecord.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading cart")
	}
	return reloaded, nil
}

func (s *service) RemoveItem(ctx context.Context, ident auth.Identity, itemID uuid.UUID) (*models.Cart, error) {
	cartRecord, err := s.requireActive(ctx, ident)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, cartRecord.ID, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart item")
	}
	reloaded, err := s.repo.FindByID(ctx, cartRecord.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading cart")
	}
	return reloaded, nil
}

func (s *service) Clear(ctx context.Context, ident auth.Identity) error {
	cartRecord, err := s.requireActive(ctx, ident)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteItems(ctx, cartRecord.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
	}
	return nil
}

func (s *service) findOrCreate(ctx context.Context, ident auth.Identity) (*models.Cart, error) {
	if !ident.HasActor() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login or guest session required")
	}

	existing, err := s.repo.FindActive(ctx, ident)
	if err == nil {
		return existing, nil
	}
	if !IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	cartRecord := &models.Cart{
		UserID:    ident.UserID,
		SessionID: ident.SessionID,
		Status:    enums.CartStatusActive,
		Currency:  enums.CurrencyINR,
	}
	if ident.IsAuthenticated() {
		cartRecord.SessionID = nil
	}
	created, err := s.repo.Create(ctx, cartRecord)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart")
	}
	return created, nil
}

func (s *service) requireActive(ctx context.Context, ident auth.Identity) (*models.Cart, error) {
	if !ident.HasActor() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login or guest session required")
	}
	cartRecord, err := s.repo.FindActive(ctx, ident)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return cartRecord, nil
}

func (s *service) checkQuantity(quantity int) error {
	if s.maxQtyPerRow > 0 && quantity > s.maxQtyPerRow {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("quantity cannot exceed %d per item", s.maxQtyPerRow))
	}
	return nil
}

func insufficientStock(title string, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("only %d of %s left", available, title)).
		WithDetails(map[string]any{"available": available})
}
