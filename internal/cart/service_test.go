package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/auth"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db/models"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
	pkgerrors "github.com/fabricspeaks/fabricspeaks-backend/pkg/errors"
)

type fakeCartRepo struct {
	carts map[uuid.UUID]*models.Cart
	items map[uuid.UUID]*models.CartItem
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{
		carts: map[uuid.UUID]*models.Cart{},
		items: map[uuid.UUID]*models.CartItem{},
	}
}

func (f *fakeCartRepo) FindActive(_ context.Context, ident auth.Identity) (*models.Cart, error) {
	for _, c := range f.carts {
		if c.Status != enums.CartStatusActive {
			continue
		}
		if ident.IsAuthenticated() && c.UserID != nil && *c.UserID == *ident.UserID {
			return f.withItems(c), nil
		}
		if !ident.IsAuthenticated() && ident.SessionID != nil && c.SessionID != nil && *c.SessionID == *ident.SessionID {
			return f.withItems(c), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCartRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Cart, error) {
	c, ok := f.carts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f.withItems(c), nil
}

func (f *fakeCartRepo) withItems(c *models.Cart) *models.Cart {
	clone := *c
	clone.Items = nil
	for _, item := range f.items {
		if item.CartID == c.ID {
			clone.Items = append(clone.Items, *item)
		}
	}
	return &clone
}

func (f *fakeCartRepo) Create(_ context.Context, cart *models.Cart) (*models.Cart, error) {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	f.carts[cart.ID] = cart
	return cart, nil
}

func (f *fakeCartRepo) FindItem(_ context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	item, ok := f.items[itemID]
	if !ok || item.CartID != cartID {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (f *fakeCartRepo) FindItemByVariant(_ context.Context, cartID uuid.UUID, variantID uuid.UUID) (*models.CartItem, error) {
	for _, item := range f.items {
		if item.CartID == cartID && item.VariantID != nil && *item.VariantID == variantID {
			return item, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCartRepo) CreateItem(_ context.Context, item *models.CartItem) (*models.CartItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeCartRepo) UpdateItem(_ context.Context, item *models.CartItem) (*models.CartItem, error) {
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeCartRepo) DeleteItem(_ context.Context, cartID, itemID uuid.UUID) error {
	item, ok := f.items[itemID]
	if ok && item.CartID == cartID {
		delete(f.items, itemID)
	}
	return nil
}

func (f *fakeCartRepo) DeleteItems(_ context.Context, cartID uuid.UUID) error {
	for id, item := range f.items {
		if item.CartID == cartID {
			delete(f.items, id)
		}
	}
	return nil
}

func guestIdentity(session string) auth.Identity {
	return auth.Identity{SessionID: &session, Role: enums.ActorRoleGuest}
}

func userIdentity(id uuid.UUID) auth.Identity {
	return auth.Identity{UserID: &id, Role: enums.ActorRoleCustomer}
}

func TestGetCreatesCartOnFirstUse(t *testing.T) {
	repo := newFakeCartRepo()
	catalog := &fakeCatalog{products: map[uuid.UUID]*models.Product{}}
	svc, err := NewService(repo, catalog, 20)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	ident := guestIdentity("guest-session-1")
	first, err := svc.Get(ctx, ident)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first.Status != enums.CartStatusActive {
		t.Fatalf("expected active cart, got %s", first.Status)
	}

	second, err := svc.Get(ctx, ident)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("expected the same cart on repeat calls")
	}

	_, err = svc.Get(ctx, auth.Identity{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for anonymous caller, got %v", err)
	}
}

func TestAddItemMergesRowsAndSnapshotsPrice(t *testing.T) {
	variant := activeVariant(150000, 10)
	product := activeProduct("Cashmere Sweater", variant)
	repo := newFakeCartRepo()
	catalog := &fakeCatalog{products: map[uuid.UUID]*models.Product{product.ID: product}}
	svc, _ := NewService(repo, catalog, 20)
	ctx := context.Background()
	ident := userIdentity(uuid.New())

	cartState, err := svc.AddItem(ctx, ident, AddItemInput{ProductID: product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(cartState.Items) != 1 {
		t.Fatalf("expected 1 row, got %d", len(cartState.Items))
	}
	if cartState.Items[0].UnitPricePaise != 150000 {
		t.Fatalf("expected snapshotted price 150000, got %d", cartState.Items[0].UnitPricePaise)
	}

	cartState, err = svc.AddItem(ctx, ident, AddItemInput{ProductID: product.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(cartState.Items) != 1 {
		t.Fatalf("expected merged row, got %d rows", len(cartState.Items))
	}
	if cartState.Items[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", cartState.Items[0].Quantity)
	}
}

func TestAddItemRejectsOversellAndCap(t *testing.T) {
	variant := activeVariant(150000, 3)
	product := activeProduct("Limited Jacket", variant)
	repo := newFakeCartRepo()
	catalog := &fakeCatalog{products: map[uuid.UUID]*models.Product{product.ID: product}}
	svc, _ := NewService(repo, catalog, 2)
	ctx := context.Background()
	ident := guestIdentity("guest-2")

	_, err := svc.AddItem(ctx, ident, AddItemInput{ProductID: product.ID, Quantity: 3})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected per-row cap violation, got %v", err)
	}

	_, err = svc.AddItem(ctx, ident, AddItemInput{ProductID: uuid.New(), Quantity: 1})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}

	svcNoCap, _ := NewService(repo, catalog, 0)
	_, err = svcNoCap.AddItem(ctx, ident, AddItemInput{ProductID: product.ID, Quantity: 4})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}

func TestUpdateAndRemoveItem(t *testing.T) {
	variant := activeVariant(80000, 10)
	product := activeProduct("Leather Belt", variant)
	repo := newFakeCartRepo()
	catalog := &fakeCatalog{products: map[uuid.UUID]*models.Product{product.ID: product}}
	svc, _ := NewService(repo, catalog, 20)
	ctx := context.Background()
	ident := userIdentity(uuid.New())

	cartState, err := svc.AddItem(ctx, ident, AddItemInput{ProductID: product.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	itemID := cartState.Items[0].ID

	cartState, err = svc.UpdateItemQuantity(ctx, ident, itemID, 4)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if cartState.Items[0].Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", cartState.Items[0].Quantity)
	}

	_, err = svc.UpdateItemQuantity(ctx, ident, itemID, 0)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}

	cartState, err = svc.RemoveItem(ctx, ident, itemID)
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if len(cartState.Items) != 0 {
		t.Fatalf("expected empty cart, got %d rows", len(cartState.Items))
	}
}
