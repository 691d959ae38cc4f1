package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"github.com/rahul4469/birdwatcher/internal/config"
	"github.com/rahul4469/birdwatcher/internal/controllers"
	"github.com/rahul4469/birdwatcher/internal/middleware"
	"github.com/rahul4469/birdwatcher/internal/models"
	"github.com/rahul4469/birdwatcher/internal/services"
	"github.com/rahul4469/birdwatcher/internal/views"
	"github.com/rahul4469/birdwatcher/migrations"
	"github.com/rahul4469/birdwatcher/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup Services ---------------
	gemini := services.NewGeminiIdentifier(cfg.APIs.GoogleAPIKey, cfg.APIs.GeminiModel, cfg.APIs.GeminiTimeout)
	var identifier services.BirdIdentifier = gemini
	if cfg.Limits.IdentifyCacheTTL > 0 {
		identifier = services.NewCachedIdentifier(gemini, cfg.Limits.IdentifyCacheTTL)
	}
	if !identifier.Configured() {
		logger.Warn("GOOGLE_API_KEY is not set, identify requests will fail")
	}

	// Setup the Database (optional) ---------------
	var (
		recorder  controllers.SightingRecorder
		sightings controllers.SightingReader
		health    controllers.HealthChecker
	)
	if cfg.Database.Enabled() {
		logger.Info("Connecting to database...")
		db, err := models.NewDatabase(ctx, models.DefaultDatabaseConfig(cfg.Database.URL))
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(migrations.FS, "."); err != nil {
			return err
		}
		logger.Info("Database connected, migrations applied")

		var images services.SpeciesImageProvider
		if cfg.APIs.SpeciesImagesEnabled {
			images = services.NewWikipediaImages(cfg.APIs.WikipediaBaseURL)
		}
		sightingService := models.NewSightingService(db.Pool)
		recorder = services.NewSightingRecorder(sightingService, images)
		sightings = sightingService
		health = db
	} else {
		logger.Info("DATABASE_URL is not set, gallery disabled")
	}

	// Setup Controllers ---------------
	views.TemplateFS = web.FS

	staticC := controllers.NewStaticController(controllers.StaticTemplates{
		Home: views.MustParseFS("pages/home.gohtml"),
		Info: views.MustParseFS("pages/info.gohtml"),
	}, cfg.Limits.MaxUploadBytes)

	identifyC := controllers.NewIdentifyController(identifier, recorder, controllers.IdentifyTemplates{
		Form: views.MustParseFS("pages/identify.gohtml"),
	}, cfg.Limits.MaxUploadBytes)

	galleryC := controllers.NewGalleryController(sightings, controllers.GalleryTemplates{
		List:   views.MustParseFS("pages/gallery.gohtml"),
		Detail: views.MustParseFS("pages/sighting.gohtml"),
		Error:  views.MustParseFS("pages/error.gohtml"),
	}, cfg.Limits.GalleryPageSize)

	staticFS, err := fs.Sub(web.FS, "static")
	if err != nil {
		return fmt.Errorf("static assets: %w", err)
	}

	csrfMw := csrf.Protect(
		[]byte(cfg.Security.CSRFSecret),
		csrf.Secure(cfg.Security.SecureCookies),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(cfg.Security.TrustedOrigins),
	)
	uploadLimit := middleware.LimitUpload(cfg.Limits.MaxUploadBytes)

	// Setup router and routes
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", controllers.HealthCheck(health, identifier.Configured()))
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// JSON API: no cookies, no CSRF
	r.With(uploadLimit).Post("/api/identify", identifyC.PostIdentifyAPI)

	// ---- HTML pages ----
	r.Group(func(r chi.Router) {
		r.Use(middleware.PlaintextHTTP(!cfg.Security.SecureCookies))
		r.Use(csrfMw)

		r.Get("/identify", identifyC.GetIdentify)
		r.With(uploadLimit).Post("/identify", identifyC.PostIdentifyForm)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(30 * time.Second))

			r.Get("/", staticC.GetHome)
			for path := range controllers.InfoPages {
				r.Get(path, staticC.GetInfo)
			}
			r.Get("/gallery", galleryC.GetGallery)
			r.Get("/gallery/{id}", galleryC.GetSighting)
		})
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			"addr", srv.Addr,
			"env", cfg.Server.Environment,
			"model", gemini.Model(),
			"gallery", cfg.Database.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// let background sighting writes finish before the pool closes
	identifyC.Wait()
	return nil
}
