package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/palmcove/resortd/internal/handler"
	"github.com/palmcove/resortd/internal/janitor"
	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/openapi"
	"github.com/palmcove/resortd/internal/server/middleware"
	"github.com/palmcove/resortd/internal/service"
	"github.com/palmcove/resortd/internal/session"
	"github.com/palmcove/resortd/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64 // bytes
	// AuthRequestsPerMinute caps /api/v1/auth calls per client IP; 0 disables.
	AuthRequestsPerMinute int
	// Fallback serves the demo catalog when the database is unreachable.
	Fallback bool
	Version  string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:                  "0.0.0.0",
		Port:                  8080,
		ShutdownTimeout:       30 * time.Second,
		CORSOrigins:           []string{"*"},
		MaxBodySize:           1 << 20, // 1MB
		AuthRequestsPerMinute: 30,
		Fallback:              true,
		Version:               "dev",
	}
}

// Services bundles everything the handlers depend on. Tokens and Janitor may
// be nil.
type Services struct {
	Store        *store.Store
	Sessions     *session.Manager
	SessionStore session.Store
	Auth         *service.Authenticator
	Limiter      *service.LoginLimiter
	Activity     *service.ActivityLogger
	Tokens       *service.TokenService
	Bookings     *service.BookingService
	Reports      *service.ReportService
	Janitor      *janitor.Janitor
}

// Server is the top-level HTTP server for resortd. It owns the chi router,
// the route table behind /openapi.json and the services it shuts down.
type Server struct {
	cfg        Config
	svc        Services
	router     chi.Router
	routes     []openapi.Route
	httpServer *http.Server
	logger     *slog.Logger

	docOnce sync.Once
	doc     *openapi3.T
	docErr  error
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, svc Services, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, svc: svc, logger: logger}
	s.setupRouter()
	return s
}

// api registers handlers under a path prefix and records each one in the
// route table.
type api struct {
	s      *Server
	r      chi.Router
	prefix string
	tag    string
	access openapi.Access
}

func (a api) handle(method, path string, h http.HandlerFunc, doc openapi.Route) {
	a.r.Method(method, path, h)
	doc.Method = method
	doc.Path = a.prefix + path
	if doc.Tag == "" {
		doc.Tag = a.tag
	}
	if doc.Access == "" {
		doc.Access = a.access
	}
	a.s.routes = append(a.s.routes, doc)
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.CSRFHeader, "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID", middleware.CSRFHeader, "Retry-After", "X-Login-Attempts-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
	}

	// --- Health checks (no session) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/openapi.json", s.handleOpenAPI)

	publicH := handler.NewPublicHandler(s.svc.Store, s.svc.Bookings, s.cfg.Fallback, s.logger)
	authH := handler.NewAuthHandler(s.svc.Store, s.svc.Auth, s.svc.Limiter, s.svc.Activity,
		s.svc.Sessions, s.svc.Tokens, s.logger)
	accountH := handler.NewAccountHandler(s.svc.Store, s.svc.Auth, s.svc.Bookings, s.logger)
	adminH := handler.NewAdminHandler(s.svc.Store, s.svc.Auth, s.svc.Bookings, s.svc.Reports, s.logger)

	// --- API routes ---
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.svc.Sessions.Middleware)
		r.Use(middleware.Authenticate(s.svc.Tokens))

		// Public catalog
		pub := api{s: s, r: r, prefix: "/api/v1", tag: "catalog", access: openapi.Public}
		pub.handle("GET", "/rooms", publicH.ListRooms, openapi.Route{
			Summary: "List rooms", Response: "Room", List: true,
			Query: []string{"type", "min_capacity", "order", "limit", "offset"},
		})
		pub.handle("GET", "/rooms/{id}", publicH.GetRoom, openapi.Route{Summary: "Get a room", Response: "Room"})
		pub.handle("GET", "/availability", publicH.Availability, openapi.Route{
			Summary: "Rooms free for a stay", Response: "Room", List: true,
			Query: []string{"check_in", "check_out", "guests"},
		})
		pub.handle("GET", "/amenities", publicH.ListAmenities, openapi.Route{Summary: "List amenities", Response: "Amenity", List: true})
		pub.handle("GET", "/services", publicH.ListServices, openapi.Route{Summary: "List bookable extras", Response: "Service", List: true})

		// Authentication
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimit(s.cfg.AuthRequestsPerMinute))
			auth := api{s: s, r: r, prefix: "/api/v1/auth", tag: "auth", access: openapi.Public}

			auth.handle("GET", "/csrf", authH.CSRF, openapi.Route{Summary: "Get the session CSRF token"})
			auth.handle("GET", "/me", authH.Me, openapi.Route{Summary: "Current identity", Access: openapi.Signed, Response: "MeResponse"})
			// API clients have no cookie to forge, so token requests skip CSRF.
			auth.handle("POST", "/token", authH.Token, openapi.Route{
				Summary: "Issue a bearer token", Request: "LoginRequest", Response: "TokenResponse",
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.VerifyCSRF)
				auth := auth
				auth.r = r
				auth.handle("POST", "/login", authH.Login, openapi.Route{
					Summary: "Sign in", Request: "LoginRequest", Response: "LoginResponse",
				})
				auth.handle("POST", "/logout", authH.Logout, openapi.Route{Summary: "Sign out"})
				auth.handle("POST", "/register", authH.Register, openapi.Route{
					Summary: "Create a customer account", Request: "RegisterRequest", Response: "Customer", Status: http.StatusCreated,
				})
			})
		})

		// Customer self-service
		r.Route("/account", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleClient))
			r.Use(middleware.RequireActive(s.svc.Auth))
			r.Use(middleware.VerifyCSRF)
			acc := api{s: s, r: r, prefix: "/api/v1/account", tag: "account", access: openapi.Client}

			acc.handle("GET", "/profile", accountH.GetProfile, openapi.Route{Summary: "Get profile", Response: "Customer"})
			acc.handle("PUT", "/profile", accountH.UpdateProfile, openapi.Route{Summary: "Update profile", Request: "ProfileRequest", Response: "Customer"})
			acc.handle("POST", "/password", accountH.ChangePassword, openapi.Route{Summary: "Change password", Request: "PasswordRequest"})
			acc.handle("GET", "/bookings", accountH.ListBookings, openapi.Route{
				Summary: "List own bookings", Response: "Booking", List: true, Query: []string{"status", "limit", "offset"},
			})
			acc.handle("POST", "/bookings", accountH.CreateBooking, openapi.Route{
				Summary: "Book a room", Request: "BookingRequest", Response: "Booking", Status: http.StatusCreated,
			})
			acc.handle("POST", "/bookings/quote", accountH.QuoteBooking, openapi.Route{Summary: "Price a stay", Request: "BookingRequest", Response: "Quote"})
			acc.handle("GET", "/bookings/{id}", accountH.GetBooking, openapi.Route{Summary: "Get own booking", Response: "Booking"})
			acc.handle("POST", "/bookings/{id}/cancel", accountH.CancelBooking, openapi.Route{Summary: "Cancel own booking", Response: "Booking"})
		})

		// Back office
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin))
			r.Use(middleware.RequireActive(s.svc.Auth))
			r.Use(middleware.VerifyCSRF)
			s.adminRoutes(api{s: s, r: r, prefix: "/api/v1/admin", tag: "admin", access: openapi.Admin}, adminH)
		})
	})

	s.router = r
}

func (s *Server) adminRoutes(a api, h *handler.AdminHandler) {
	a.handle("GET", "/dashboard", h.Dashboard, openapi.Route{Summary: "Dashboard summary", Response: "DashboardSummary"})
	a.handle("GET", "/reports/revenue", h.RevenueReport, openapi.Route{Summary: "Monthly revenue", Response: "RevenueReport", Query: []string{"year"}})
	a.handle("GET", "/reports/occupancy", h.OccupancyReport, openapi.Route{Summary: "Occupancy for a range", Response: "OccupancyReport", Query: []string{"from", "to"}})

	a.handle("GET", "/bookings", h.ListBookings, openapi.Route{
		Tag: "bookings", Summary: "List bookings", Response: "Booking", List: true,
		Query: []string{"status", "customer_id", "room_id", "order", "limit", "offset"},
	})
	a.handle("POST", "/bookings", h.CreateBooking, openapi.Route{
		Tag: "bookings", Summary: "Book on behalf of a customer", Request: "BookingRequest", Response: "Booking", Status: http.StatusCreated,
	})
	a.handle("GET", "/bookings/{id}", h.GetBooking, openapi.Route{Tag: "bookings", Summary: "Get a booking", Response: "Booking"})
	a.handle("POST", "/bookings/{id}/status", h.UpdateBookingStatus, openapi.Route{
		Tag: "bookings", Summary: "Change booking status", Request: "StatusRequest", Response: "Booking",
	})

	crud := []struct {
		path, tag, schema, request string
		list, get, create, update  http.HandlerFunc
		remove                     http.HandlerFunc
	}{
		{"/rooms", "rooms", "Room", "RoomRequest", h.ListRooms, h.GetRoom, h.CreateRoom, h.UpdateRoom, h.DeleteRoom},
		{"/amenities", "amenities", "Amenity", "AmenityRequest", h.ListAmenities, h.GetAmenity, h.CreateAmenity, h.UpdateAmenity, h.DeleteAmenity},
		{"/services", "services", "Service", "ServiceRequest", h.ListServices, h.GetService, h.CreateService, h.UpdateService, h.DeleteService},
		{"/employees", "employees", "Employee", "EmployeeRequest", h.ListEmployees, h.GetEmployee, h.CreateEmployee, h.UpdateEmployee, h.DeleteEmployee},
	}
	for _, c := range crud {
		a.handle("GET", c.path, c.list, openapi.Route{Tag: c.tag, Summary: "List " + c.tag, Response: c.schema, List: true})
		a.handle("POST", c.path, c.create, openapi.Route{
			Tag: c.tag, Summary: "Create " + c.schema, Request: c.request, Response: c.schema, Status: http.StatusCreated,
		})
		a.handle("GET", c.path+"/{id}", c.get, openapi.Route{Tag: c.tag, Summary: "Get " + c.schema, Response: c.schema})
		a.handle("PUT", c.path+"/{id}", c.update, openapi.Route{Tag: c.tag, Summary: "Update " + c.schema, Request: c.request, Response: c.schema})
		a.handle("DELETE", c.path+"/{id}", c.remove, openapi.Route{Tag: c.tag, Summary: "Delete " + c.schema})
	}

	a.handle("GET", "/customers", h.ListCustomers, openapi.Route{
		Tag: "customers", Summary: "List customers", Response: "Customer", List: true,
		Query: []string{"search", "banned", "order", "limit", "offset"},
	})
	a.handle("GET", "/customers/{id}", h.GetCustomer, openapi.Route{Tag: "customers", Summary: "Get a customer", Response: "Customer"})
	a.handle("PUT", "/customers/{id}", h.UpdateCustomer, openapi.Route{Tag: "customers", Summary: "Update a customer", Request: "ProfileRequest", Response: "Customer"})
	a.handle("POST", "/customers/{id}/ban", h.BanCustomer, openapi.Route{Tag: "customers", Summary: "Ban a customer", Response: "Customer"})
	a.handle("POST", "/customers/{id}/unban", h.UnbanCustomer, openapi.Route{Tag: "customers", Summary: "Lift a ban", Response: "Customer"})
	a.handle("DELETE", "/customers/{id}", h.DeleteCustomer, openapi.Route{Tag: "customers", Summary: "Delete a customer"})

	a.handle("GET", "/administrators", h.ListAdministrators, openapi.Route{
		Tag: "administrators", Summary: "List administrators", Response: "Administrator", List: true,
	})
	a.handle("POST", "/administrators", h.CreateAdministrator, openapi.Route{
		Tag: "administrators", Summary: "Create an administrator", Request: "AdministratorInput", Response: "Administrator", Status: http.StatusCreated,
	})
	a.handle("POST", "/administrators/{id}/active", h.SetAdministratorActive, openapi.Route{
		Tag: "administrators", Summary: "Enable or disable an administrator", Request: "ActiveRequest", Response: "Administrator",
	})

	a.handle("GET", "/activity", h.ListActivity, openapi.Route{
		Tag: "activity", Summary: "Authentication activity", Response: "ActivityEntry", List: true,
		Query: []string{"event", "role", "outcome", "user_id", "limit", "offset"},
	})
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the database and the
// session store are reachable, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "check", name, "error", err)
			checks[name] = "unavailable"
			status = "degraded"
			return
		}
		checks[name] = "ok"
	}
	check("database", s.svc.Store.Ping)
	if p, ok := s.svc.SessionStore.(interface{ Ping(context.Context) error }); ok {
		check("sessions", p.Ping)
	}

	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// handleOpenAPI serves the document built from the route table.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc, err := s.OpenAPI()
	if err != nil {
		s.logger.Error("openapi generation failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(model.Response{Success: false, Message: "Something went wrong", Code: model.CodeServerError})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

// OpenAPI returns the document describing every registered route. It is
// generated once.
func (s *Server) OpenAPI() (*openapi3.T, error) {
	s.docOnce.Do(func() {
		s.doc, s.docErr = openapi.Generate("resortd", s.cfg.Version, s.routes, handler.Schemas())
	})
	return s.doc, s.docErr
}

// Routes returns the registered route table.
func (s *Server) Routes() []openapi.Route {
	return append([]openapi.Route(nil), s.routes...)
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then drains in-flight requests, stops the janitor and
// closes the database.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.svc.Janitor.Start()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var listenErr error
	select {
	case err := <-errCh:
		listenErr = fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if listenErr == nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			listenErr = fmt.Errorf("server shutdown: %w", err)
		}
	}

	s.svc.Janitor.Shutdown()
	if c, ok := s.svc.SessionStore.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			s.logger.Warn("session store close failed", "error", err)
		}
	}
	if err := s.svc.Store.Close(); err != nil {
		s.logger.Warn("database close failed", "error", err)
	}
	s.logger.Info("server stopped")
	return listenErr
}

// Router returns the underlying chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
