package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dukerupert/signups/internal/blob"
	"github.com/dukerupert/signups/internal/database"
	"github.com/dukerupert/signups/internal/events"
	"github.com/dukerupert/signups/internal/handler"
	"github.com/dukerupert/signups/internal/identity"
	"github.com/dukerupert/signups/internal/kids"
	"github.com/dukerupert/signups/internal/ledger"
	"github.com/dukerupert/signups/internal/middleware"
	"github.com/dukerupert/signups/internal/notify"
	"github.com/dukerupert/signups/internal/shelter"
	ws "github.com/dukerupert/signups/internal/websocket"
)

// Deps are the outside collaborators the server is wired to.
type Deps struct {
	JWTSecret      []byte
	Production     bool
	OriginPatterns []string
	Mailer         notify.Mailer
	Texter         notify.Texter
	Images         *blob.Store
	Discord        notify.ChannelPoster
	DiscordChannel string
}

type Server struct {
	db          *database.DB
	hub         *ws.Hub
	identity    *identity.Service
	authH       *handler.AuthHandler
	signupH     *handler.SignupHandler
	eventH      *handler.EventHandler
	kidH        *handler.KidHandler
	shelterH    *handler.ShelterHandler
	rateLimiter *middleware.RateLimiter
	origins     []string
	logger      *slog.Logger
}

func New(db *database.DB, deps Deps, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger)

	id := identity.NewService(db, deps.JWTSecret, logger, identity.WithProduction(deps.Production))
	l := ledger.New(db, logger)
	shelters := shelter.NewAllocator(db, logger)
	eventSvc := events.NewService(db, shelters, logger)
	pipeline := kids.NewPipeline(db, l, shelters, logger)

	var notifyOpts []notify.Option
	if deps.Discord != nil && deps.DiscordChannel != "" {
		notifyOpts = append(notifyOpts, notify.WithDiscord(deps.Discord, deps.DiscordChannel))
	}
	dispatcher := notify.NewDispatcher(deps.Mailer, deps.Texter, logger, notifyOpts...)

	images := deps.Images
	if images == nil {
		images = blob.NewStore(blob.Config{})
	}

	return &Server{
		db:          db,
		hub:         hub,
		identity:    id,
		authH:       handler.NewAuthHandler(id, dispatcher, logger.With("component", "auth")),
		signupH:     handler.NewSignupHandler(l, eventSvc, id, dispatcher, hub, logger.With("component", "signup")),
		eventH:      handler.NewEventHandler(eventSvc, l, images, logger.With("component", "event")),
		kidH:        handler.NewKidHandler(pipeline, hub, logger.With("component", "kid")),
		shelterH:    handler.NewShelterHandler(shelters, hub, logger.With("component", "shelter")),
		rateLimiter: middleware.NewRateLimiter(time.Now),
		origins:     deps.OriginPatterns,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(s.logger.With("component", "http")))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Authenticate(s.identity, s.logger.With("component", "auth")))

	r.Get("/health", s.healthHandler)

	r.Route("/auth", func(r chi.Router) {
		r.With(s.rateLimited).Post("/register", s.authH.Register)
		r.With(s.rateLimited, s.perAccount("login", "identifier", 5)).Post("/login", s.authH.Login)
		r.With(s.rateLimited, s.perAccount("verify", "user_id", 10)).Post("/verify", s.authH.VerifyOTP)
		r.Get("/magic", s.authH.Magic)
		r.Post("/logout", s.authH.Logout)
		r.With(middleware.RequireUser).Get("/me", s.authH.Me)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", s.eventH.List)
		r.Get("/events/{id}", s.eventH.Get)
		r.With(s.rateLimited).Post("/events/{id}/kids", s.kidH.Intake)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Post("/items/{id}/signups", s.signupH.Create)
			r.Get("/signups", s.signupH.Mine)
			r.Post("/signups/{id}/cancel", s.signupH.Cancel)
		})

		r.Route("/admin", s.adminRoutes)
	})

	return r
}

func (s *Server) adminRoutes(r chi.Router) {
	r.Use(middleware.RequireAdmin)

	r.Get("/ws", ws.HandleWebSocket(s.hub, s.origins, s.logger.With("component", "websocket")))

	r.Post("/events", s.eventH.Create)
	r.Put("/events/{id}", s.eventH.Update)
	r.Delete("/events/{id}", s.eventH.Delete)
	r.Post("/events/{id}/form-code", s.eventH.RotateFormCode)
	r.Post("/events/{id}/image", s.eventH.UploadImage)
	r.Get("/events/{id}/summary", s.eventH.Summary)
	r.Get("/events/{id}/signups", s.signupH.ForEvent)
	r.Post("/events/{id}/items", s.eventH.CreateItem)
	r.Get("/events/{id}/kids", s.kidH.List)
	r.Post("/events/{id}/kids", s.kidH.Add)
	r.Post("/events/{id}/kids/approve", s.kidH.ApproveAll)

	r.Put("/items/{id}", s.eventH.UpdateItem)
	r.Delete("/items/{id}", s.eventH.RetireItem)

	r.Get("/kids/{id}", s.kidH.Get)
	r.Put("/kids/{id}", s.kidH.Update)
	r.Delete("/kids/{id}", s.kidH.Delete)
	r.Post("/kids/{id}/approve", s.kidH.Approve)

	r.Get("/shelters", s.shelterH.List)
	r.Post("/shelters", s.shelterH.Create)
	r.Delete("/shelters/{id}", s.shelterH.Delete)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		status = "database unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimited(next http.Handler) http.Handler {
	return middleware.RateLimit(s.rateLimiter, "ip", middleware.RealIP, 10, time.Minute)(next)
}

// perAccount limits requests naming the same account, whatever address they
// come from.
func (s *Server) perAccount(scope, field string, limit int) func(http.Handler) http.Handler {
	key := middleware.JSONField(field, accountKey)
	return middleware.RateLimit(s.rateLimiter, scope, key, limit, 15*time.Minute)
}

func accountKey(v string) string {
	if _, normalized, err := identity.Classify(v); err == nil {
		return normalized
	}
	return strings.ToLower(strings.TrimSpace(v))
}
