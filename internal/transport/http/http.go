package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/order"
	"github.com/corray333/backend-labs/orderddd/internal/domain/user"
	"github.com/corray333/backend-labs/orderddd/internal/service/models/orderquery"
	createorder "github.com/corray333/backend-labs/orderddd/internal/transport/http/create_order"
	getorder "github.com/corray333/backend-labs/orderddd/internal/transport/http/get_order"
	listorders "github.com/corray333/backend-labs/orderddd/internal/transport/http/list_orders"
	orderitems "github.com/corray333/backend-labs/orderddd/internal/transport/http/order_items"
	orderlifecycle "github.com/corray333/backend-labs/orderddd/internal/transport/http/order_lifecycle"
	"github.com/corray333/backend-labs/orderddd/internal/transport/http/response"
	"github.com/corray333/backend-labs/orderddd/internal/transport/http/users"
	"github.com/corray333/backend-labs/orderddd/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/orderddd/pkg/logger"
	"github.com/corray333/backend-labs/orderddd/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

type orderService interface {
	CreateOrder(ctx context.Context, userID ident.UserID, items []order.LineItem) (*order.Order, error)
	GetOrder(ctx context.Context, id ident.OrderID) (*order.Order, error)
	ListOrders(ctx context.Context, q orderquery.Query) ([]*order.Order, error)
	AddItem(ctx context.Context, id ident.OrderID, item order.LineItem) (*order.Order, error)
	RemoveItem(ctx context.Context, id ident.OrderID, productID ident.ProductID) (*order.Order, error)
	ChangeItemQuantity(ctx context.Context, id ident.OrderID, productID ident.ProductID, quantity int) (*order.Order, error)
	ConfirmOrder(ctx context.Context, id ident.OrderID) (*order.Order, error)
	CancelOrder(ctx context.Context, id ident.OrderID) (*order.Order, error)
}

type userService interface {
	RegisterUser(ctx context.Context, name user.Name, email user.Email) (*user.User, error)
	GetUser(ctx context.Context, id ident.UserID) (*user.User, error)
	Rename(ctx context.Context, id ident.UserID, name user.Name) (*user.User, error)
	ChangeEmail(ctx context.Context, id ident.UserID, email user.Email) (*user.User, error)
	Deactivate(ctx context.Context, id ident.UserID) (*user.User, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type HTTPTransport struct {
	server       *http.Server
	router       *chi.Mux
	orderService orderService
	userService  userService
	metrics      *metrics.ServerMetrics
	db           pinger
}

func NewHTTPTransport(
	orderService orderService,
	userService userService,
	m *metrics.ServerMetrics,
	db pinger,
) *HTTPTransport {
	router := newRouter(m)
	server := newServer(router)

	return &HTTPTransport{
		server:       server,
		router:       router,
		orderService: orderService,
		userService:  userService,
		metrics:      m,
		db:           db,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Get("/healthz", h.healthz)
	if h.metrics != nil {
		h.router.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	h.router.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/", h.createOrder)

			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", h.getOrder)
				r.Post("/items", h.addItem)
				r.Put("/items/{productID}", h.changeItemQuantity)
				r.Delete("/items/{productID}", h.removeItem)
				r.Post("/confirm", h.confirmOrder)
				r.Post("/cancel", h.cancelOrder)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.registerUser)

			r.Route("/{userID}", func(r chi.Router) {
				r.Get("/", h.getUser)
				r.Put("/name", h.renameUser)
				r.Put("/email", h.changeUserEmail)
				r.Post("/deactivate", h.deactivateUser)
			})
		})
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.orderService)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orderService)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.orderService)
}

func (h *HTTPTransport) addItem(w http.ResponseWriter, r *http.Request) {
	orderitems.AddItem(w, r, h.orderService)
}

func (h *HTTPTransport) changeItemQuantity(w http.ResponseWriter, r *http.Request) {
	orderitems.ChangeQuantity(w, r, h.orderService)
}

func (h *HTTPTransport) removeItem(w http.ResponseWriter, r *http.Request) {
	orderitems.RemoveItem(w, r, h.orderService)
}

func (h *HTTPTransport) confirmOrder(w http.ResponseWriter, r *http.Request) {
	orderlifecycle.Confirm(w, r, h.orderService)
}

func (h *HTTPTransport) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderlifecycle.Cancel(w, r, h.orderService)
}

func (h *HTTPTransport) registerUser(w http.ResponseWriter, r *http.Request) {
	users.Register(w, r, h.userService)
}

func (h *HTTPTransport) getUser(w http.ResponseWriter, r *http.Request) {
	users.Get(w, r, h.userService)
}

func (h *HTTPTransport) renameUser(w http.ResponseWriter, r *http.Request) {
	users.Rename(w, r, h.userService)
}

func (h *HTTPTransport) changeUserEmail(w http.ResponseWriter, r *http.Request) {
	users.ChangeEmail(w, r, h.userService)
}

func (h *HTTPTransport) deactivateUser(w http.ResponseWriter, r *http.Request) {
	users.Deactivate(w, r, h.userService)
}

func (h *HTTPTransport) healthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			response.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})

			return
		}
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func newRouter(m *metrics.ServerMetrics) *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware("http"))
	if m != nil {
		router.Use(m.Middleware)
	}

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:              "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
