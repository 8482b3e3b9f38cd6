package rest

import (
	"net/http"

	"canvas-backend/interfaces/http/rest/handlers"
	"canvas-backend/interfaces/http/rest/middleware"
	"canvas-backend/pkg/auth"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	projectHandler *handlers.ProjectHandler
	canvasHandler  *handlers.CanvasHandler
	chatHandler    *handlers.ChatHandler
	validator      *auth.JWTValidator
	enableCORS     bool
	logger         *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	projectHandler *handlers.ProjectHandler,
	canvasHandler *handlers.CanvasHandler,
	chatHandler *handlers.ChatHandler,
	validator *auth.JWTValidator,
	enableCORS bool,
	logger *zap.Logger,
) *Router {
	return &Router{
		projectHandler: projectHandler,
		canvasHandler:  canvasHandler,
		chatHandler:    chatHandler,
		validator:      validator,
		enableCORS:     enableCORS,
		logger:         logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.canvas.app"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	// API routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.logger))

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", rt.projectHandler.CreateProject)
			r.Get("/", rt.projectHandler.ListProjects)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", rt.projectHandler.GetProject)
				r.Delete("/", rt.projectHandler.DeleteProject)

				r.Route("/canvas", func(r chi.Router) {
					r.Get("/", rt.canvasHandler.GetCanvas)
					r.Put("/", rt.canvasHandler.PutCanvas)
					r.Post("/reset", rt.canvasHandler.ResetCanvas)
					r.Put("/viewport", rt.canvasHandler.SetViewport)
					r.Delete("/session", rt.canvasHandler.CloseSession)

					r.Route("/nodes", func(r chi.Router) {
						r.Post("/", rt.canvasHandler.AddNode)
						r.Patch("/{nodeID}", rt.canvasHandler.UpdateNode)
						r.Delete("/{nodeID}", rt.canvasHandler.DeleteNode)
						r.Get("/{nodeID}/context", rt.canvasHandler.GetContext)
					})

					r.Route("/edges", func(r chi.Router) {
						r.Post("/", rt.canvasHandler.Connect)
						r.Delete("/{edgeID}", rt.canvasHandler.DeleteEdge)
					})

					r.Route("/clipboard", func(r chi.Router) {
						r.Post("/copy", rt.canvasHandler.CopyNodes)
						r.Post("/paste", rt.canvasHandler.PasteNodes)
					})
				})

				r.Post("/chat", rt.chatHandler.Send)
				r.Post("/chat/stream", rt.chatHandler.Stream)
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
