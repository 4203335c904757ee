package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/sdocherty/docflow/internal/api/handlers"
	"github.com/sdocherty/docflow/internal/api/middleware"
	"github.com/sdocherty/docflow/internal/cache"
	"github.com/sdocherty/docflow/internal/config"
	"github.com/sdocherty/docflow/internal/metadata"
	"github.com/sdocherty/docflow/internal/queue"
	"github.com/sdocherty/docflow/internal/storage"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	store := metadata.NewPostgresStore(rt.db)
	blobs := storage.NewSupabaseStore(rt.cfg.Storage.SupabaseURL, rt.cfg.Storage.SupabaseKey)
	queueClient := queue.NewClient(rt.cfg.Redis)

	var c *cache.Cache
	if rt.redis != nil {
		c = cache.NewCache(rt.redis)
	}

	docH := handlers.NewDocumentHandler(store, blobs, queueClient, c, rt.cfg.Storage.IncomingBucket, rt.cfg.Pipeline.MaxDocumentSizeMB)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalJWT(rt.cfg.Auth.JWTSecret))

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/{id}/data", docH.ExtractedData)
		})
	})

	return r
}
