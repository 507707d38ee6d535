package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fabricspeaks/fabricspeaks-backend/api/controllers"
	"github.com/fabricspeaks/fabricspeaks-backend/api/middleware"
	cartsvc "github.com/fabricspeaks/fabricspeaks-backend/internal/cart"
	checkoutsvc "github.com/fabricspeaks/fabricspeaks-backend/internal/checkout"
	inventorysvc "github.com/fabricspeaks/fabricspeaks-backend/internal/inventory"
	ordersvc "github.com/fabricspeaks/fabricspeaks-backend/internal/orders"
	paymentsvc "github.com/fabricspeaks/fabricspeaks-backend/internal/payments"
	productsvc "github.com/fabricspeaks/fabricspeaks-backend/internal/products"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/config"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/db"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Products  productsvc.Service
	Cart      cartsvc.Service
	Validator *cartsvc.Validator
	Checkout  checkoutsvc.Service
	Payments  paymentsvc.Service
	Orders    ordersvc.Service
	Inventory inventorysvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	var redisPinger db.Pinger
	var idemStore redis.IdempotencyStore
	if redisClient != nil {
		redisPinger = redisClient
		idemStore = redisClient
	}

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Gateway callbacks authenticate with their own signature, not a bearer
	// token.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/razorpay", controllers.RazorpayWebhook(svcs.Payments, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.BrowseProducts(svcs.Products, logg))
			r.Get("/{slug}", controllers.ProductBySlug(svcs.Products, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(svcs.Cart, logg))
			r.Delete("/", controllers.CartClear(svcs.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
			r.Patch("/items/{itemID}", controllers.CartUpdateItem(svcs.Cart, logg))
			r.Delete("/items/{itemID}", controllers.CartRemoveItem(svcs.Cart, logg))
			r.Post("/validate-for-checkout", controllers.CartValidate(svcs.Cart, svcs.Validator, logg))
		})

		r.Post("/checkout", controllers.Checkout(svcs.Checkout, logg))
		r.Post("/payments/verify", controllers.VerifyPayment(svcs.Payments, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(svcs.Orders, logg))
			r.Get("/{orderID}", controllers.OrderDetail(svcs.Orders, logg))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(svcs.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminListProducts(svcs.Products, logg))
			r.Post("/", controllers.AdminCreateProduct(svcs.Products, logg))
			r.Patch("/{productID}", controllers.AdminUpdateProduct(svcs.Products, logg))
			r.Delete("/{productID}", controllers.AdminArchiveProduct(svcs.Products, logg))
			r.Post("/{productID}/variants", controllers.AdminAddVariant(svcs.Products, logg))
		})
		r.Patch("/variants/{variantID}", controllers.AdminUpdateVariant(svcs.Products, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(svcs.Orders, logg))
			r.Get("/{orderID}", controllers.OrderDetail(svcs.Orders, logg))
			r.Post("/{orderID}/status", controllers.AdminUpdateOrderStatus(svcs.Orders, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/adjust", controllers.AdminAdjustStock(svcs.Inventory, logg))
			r.Get("/low-stock", controllers.AdminLowStockReport(svcs.Inventory, logg))
			r.Get("/variants/{variantID}/history", controllers.AdminAdjustmentHistory(svcs.Inventory, logg))
			r.Get("/variants/{variantID}/outlook", controllers.AdminStockOutlook(svcs.Inventory, logg))
		})
	})

	return r
}
