package server

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/faciam-dev/gadmin/internal/api/handler"
	"github.com/faciam-dev/gadmin/internal/auditlog"
	"github.com/faciam-dev/gadmin/internal/auth"
	"github.com/faciam-dev/gadmin/internal/engine"
	"github.com/faciam-dev/gadmin/internal/i18n"
	"github.com/faciam-dev/gadmin/internal/logger"
	"github.com/faciam-dev/gadmin/internal/rbac"
	"github.com/faciam-dev/gadmin/internal/schema"
	"github.com/faciam-dev/gadmin/internal/server/middleware"
	"github.com/faciam-dev/gadmin/internal/storage"
)

// New assembles the chi router, huma API, middleware chain and every
// handler around the schema engine.
func New(db *sql.DB, cfg Config) huma.API {
	r := chi.NewRouter()

	allowed := os.Getenv("ALLOWED_ORIGINS")
	if allowed == "" {
		allowed = "http://localhost:5173"
	}
	origins := strings.Split(allowed, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	dialect := storage.DialectFor(cfg.Driver)

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.L.Error("JWT_SECRET environment variable is not set. Application cannot start.")
		os.Exit(1)
	}

	enf, err := rbac.NewEnforcer()
	if err != nil {
		logger.L.Error("casbin enforcer", "err", err)
	} else {
		enf.AddPolicy("admin", "/v1/*", "GET")
		enf.AddPolicy("admin", "/v1/*", "POST")
		enf.AddPolicy("admin", "/v1/*", "PUT")
		enf.AddPolicy("admin", "/v1/*", "DELETE")
		enf.AddPolicy("admin", "*", rbac.ActExecute)
		if db != nil {
			if err := rbac.Load(context.Background(), db, cfg.Driver, cfg.TablePrefix, enf); err != nil {
				logger.L.Error("load rbac", "err", err)
			}
		}
	}

	api := humachi.New(r, huma.DefaultConfig("Schema Admin API", "1.0.0"))
	jwtHandler := auth.NewJWT(secret, 15*time.Minute)

	// Login & refresh stay publicly reachable: register them before the
	// auth middleware applies to subsequent operations.
	auth.Register(api, &auth.Handler{
		Repo: &auth.UserRepo{DB: db, Dialect: dialect, TablePrefix: cfg.TablePrefix},
		JWT:  jwtHandler,
	})
	api.UseMiddleware(auth.Middleware(api, jwtHandler))

	resolver := func(ctx context.Context, user string) ([]string, error) {
		return rbac.RolesOf(ctx, db, cfg.Driver, cfg.TablePrefix, user)
	}
	if err == nil {
		api.UseMiddleware(middleware.RBAC(enf, resolver))
	}
	api.UseMiddleware(middleware.MetricsMW)

	conns := storage.NewRegistry(cfg.Connections)
	if db != nil {
		conns.Register(storage.DefaultConnection, db, cfg.Driver)
	}

	src := &schema.DirSource{Dir: cfg.SchemaDir}
	store := schema.NewStore(src)
	if cfg.WatchSchema {
		go func() {
			if err := src.Watch(context.Background(), store); err != nil && err != context.Canceled {
				logger.L.Error("schema watcher stopped", "err", err)
			}
		}()
	}

	var translator *i18n.Translator
	if cfg.LocaleDir != "" {
		translator, err = i18n.LoadDir(cfg.LocaleDir, cfg.Locale)
		if err != nil {
			logger.L.Error("load locale", "locale", cfg.Locale, "err", err)
			translator = nil
		}
	}

	audit := &auditlog.Recorder{DB: db, Dialect: dialect, TablePrefix: cfg.TablePrefix}
	authz := &rbac.Authorizer{Enf: enf, Resolve: resolver}

	h := &handler.Handler{
		Store:    store,
		Engine:   &engine.Engine{Conns: conns},
		Resolver: &engine.Resolver{Schemas: store},
		Records:  &engine.Records{Conns: conns, Audit: audit},
		Actions:  &engine.ActionExecutor{Conns: conns, Auth: authz, Audit: audit},
		Audit:    audit,
		T:        translator,
	}
	handler.RegisterSchemas(api, h)
	handler.RegisterRecords(api, h)
	handler.RegisterRelations(api, h)
	handler.RegisterActions(api, h)

	return api
}
