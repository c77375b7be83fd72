package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vinavax/vinavax-backend/api/controllers"
	"github.com/vinavax/vinavax-backend/api/middleware"
	authsvc "github.com/vinavax/vinavax-backend/internal/auth"
	cartstore "github.com/vinavax/vinavax-backend/internal/cart"
	checkoutsvc "github.com/vinavax/vinavax-backend/internal/checkout"
	locationsvc "github.com/vinavax/vinavax-backend/internal/locations"
	ordersvc "github.com/vinavax/vinavax-backend/internal/orders"
	paymentsvc "github.com/vinavax/vinavax-backend/internal/payments"
	promotionsvc "github.com/vinavax/vinavax-backend/internal/promotions"
	vaccinesvc "github.com/vinavax/vinavax-backend/internal/vaccines"
	"github.com/vinavax/vinavax-backend/pkg/config"
	"github.com/vinavax/vinavax-backend/pkg/db"
	"github.com/vinavax/vinavax-backend/pkg/enums"
	"github.com/vinavax/vinavax-backend/pkg/logger"
	pkgredis "github.com/vinavax/vinavax-backend/pkg/redis"
)

// Services bundles everything the router mounts.
type Services struct {
	Auth       authsvc.Service
	Vaccines   vaccinesvc.Service
	Locations  locationsvc.Service
	Promotions promotionsvc.Service
	Orders     ordersvc.Service
	Payments   paymentsvc.Service
	Checkout   checkoutsvc.Service
	Cart       *cartstore.Store
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	authn := middleware.Auth(cfg.JWT, logg)
	adminOnly := middleware.RequireRole(string(enums.StaffRoleAdmin), logg)
	idem := middleware.Idempotency(redisClient, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(cfg.AuthRateLimit, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
			r.With(authn).Get("/me", controllers.AuthMe(svcs.Auth, logg))
			r.With(authn, adminOnly, idem).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		})

		r.Route("/vaccines", func(r chi.Router) {
			r.Get("/", controllers.VaccineList(svcs.Vaccines, logg))
			r.Get("/{vaccineId}", controllers.VaccineGet(svcs.Vaccines, logg))
			r.With(authn, adminOnly, idem).Post("/", controllers.VaccineCreate(svcs.Vaccines, logg))
			r.With(authn, adminOnly, idem).Put("/{vaccineId}", controllers.VaccineUpdate(svcs.Vaccines, logg))
			r.With(authn, adminOnly, idem).Delete("/{vaccineId}", controllers.VaccineDeactivate(svcs.Vaccines, logg))
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", controllers.LocationList(svcs.Locations, logg))
			r.Get("/{locationId}", controllers.LocationGet(svcs.Locations, logg))
			r.With(authn, adminOnly, idem).Post("/", controllers.LocationCreate(svcs.Locations, logg))
			r.With(authn, adminOnly, idem).Put("/{locationId}", controllers.LocationUpdate(svcs.Locations, logg))
			r.With(authn, adminOnly, idem).Delete("/{locationId}", controllers.LocationDeactivate(svcs.Locations, logg))
		})

		// Storefront surface; the anonymous shopper is identified by the
		// X-Customer-Ref header.
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(svcs.Cart, logg))
			r.Post("/", controllers.CartAdd(svcs.Cart, svcs.Vaccines, logg))
			r.Put("/quantity", controllers.CartUpdateQuantity(svcs.Cart, logg))
			r.Delete("/{serviceId}", controllers.CartRemove(svcs.Cart, logg))
			r.Delete("/", controllers.CartClear(svcs.Cart, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.CheckoutStart(svcs.Checkout, logg))
			r.Get("/{checkoutId}", controllers.CheckoutGet(svcs.Checkout, logg))
			r.Put("/{checkoutId}/customer-info", controllers.CheckoutCustomerInfo(svcs.Checkout, logg))
			r.Post("/{checkoutId}/confirm", controllers.CheckoutConfirm(svcs.Checkout, logg))
			r.Post("/{checkoutId}/submit", controllers.CheckoutSubmit(svcs.Checkout, logg))
		})

		r.Route("/KhuyenMai", func(r chi.Router) {
			r.Get("/validate-code/{code}", controllers.PromotionValidateCode(svcs.Promotions, logg))
			r.With(authn).Get("/", controllers.PromotionList(svcs.Promotions, logg))
			r.With(authn).Get("/{promotionId}", controllers.PromotionGet(svcs.Promotions, logg))
			r.With(authn, adminOnly, idem).Post("/", controllers.PromotionCreate(svcs.Promotions, logg))
			r.With(authn, adminOnly, idem).Put("/{promotionId}", controllers.PromotionUpdate(svcs.Promotions, logg))
			r.With(authn, adminOnly, idem).Delete("/{promotionId}", controllers.PromotionDelete(svcs.Promotions, logg))
		})
		r.With(authn, idem).Post("/DonHangKhuyenMai", controllers.PromotionRecordUsage(svcs.Promotions, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(idem).Post("/", controllers.OrderCreate(svcs.Orders, logg))
			r.Post("/check-eligibility", controllers.OrderCheckEligibility(svcs.Orders, logg))
			r.With(authn).Get("/", controllers.OrderList(svcs.Orders, logg))
			r.With(authn).Get("/{orderId}", controllers.OrderGet(svcs.Orders, logg))
			r.With(authn, idem).Put("/{orderId}/status", controllers.OrderUpdateStatus(svcs.Orders, logg))
			r.With(authn, idem).Put("/{orderId}/discount", controllers.OrderUpdateDiscount(svcs.Orders, logg))
		})

		r.Route("/payments/momo", func(r chi.Router) {
			r.With(idem).Post("/create", controllers.PaymentCreate(svcs.Payments, logg))
			r.Get("/status/{orderId}", controllers.PaymentStatus(svcs.Payments, logg))
			r.Get("/return", controllers.PaymentReturn(svcs.Payments, logg))
		})
	})

	return r
}
