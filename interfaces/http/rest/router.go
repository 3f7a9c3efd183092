package rest

import (
	"net/http"

	"fieldui/infrastructure/di"
	"fieldui/interfaces/http/rest/handlers"
	"fieldui/interfaces/http/rest/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	container *di.Container
	logger    *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(container *di.Container) *Router {
	return &Router{
		container: container,
		logger:    container.Logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	c := rt.container

	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if c.Config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:*", "capacitor://localhost"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Device-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	screenHandler := handlers.NewScreenHandler(c.Navigator, c.Loader, c.Metrics, rt.logger)
	inputHandler := handlers.NewInputHandler(c.InputStore, rt.logger)
	actionHandler := handlers.NewActionHandler(c.Dispatcher, c.Navigator, rt.logger)
	queueHandler := handlers.NewQueueHandler(c.ActionStore, c.Dispatcher, c.Replayer, rt.logger)
	connectivityHandler := handlers.NewConnectivityHandler(c.Connectivity, rt.logger)

	router.Route("/api/v2", func(r chi.Router) {
		r.Use(middleware.Authenticate(c.JWTValidator, c.RateLimiter, rt.logger))

		// Screen endpoints
		r.Route("/screens", func(r chi.Router) {
			r.Get("/", screenHandler.ListScreens)
			r.Get("/{screen}", screenHandler.OpenScreen)
			r.Get("/{screen}/definition", screenHandler.GetDefinition)
		})

		// Input value endpoints
		r.Route("/inputs", func(r chi.Router) {
			r.Get("/", inputHandler.GetValues)
			r.Delete("/", inputHandler.ClearEntity)
			r.Put("/{valueKey}", inputHandler.SetValue)
			r.Delete("/{valueKey}", inputHandler.DeleteValue)
		})

		// Action dispatch
		r.Post("/actions", actionHandler.Dispatch)

		// Queue inspection and retries
		r.Route("/queue", func(r chi.Router) {
			r.Get("/", queueHandler.List)
			r.Get("/stats", queueHandler.Stats)
			r.Delete("/synced", queueHandler.PruneSynced)
			r.Get("/{actionID}", queueHandler.Get)
			r.Post("/{actionID}/requeue", queueHandler.Requeue)
		})

		// Connectivity state, writable in development
		r.Get("/connectivity", connectivityHandler.Status)
		if !c.Config.IsProduction() {
			r.Put("/connectivity", connectivityHandler.SetStatus)
		}
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck verifies the queue store answers before reporting ready
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if _, err := rt.container.ActionStore.CountByStatus(req.Context()); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
