package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"wanderlust/admin"
	"wanderlust/auth"
	"wanderlust/bookings"
	"wanderlust/config"
	"wanderlust/db"
	"wanderlust/home"
	"wanderlust/livefeed"
	"wanderlust/logging"
	"wanderlust/mailer"
	"wanderlust/media"
	"wanderlust/middleware"
	"wanderlust/mq"
	"wanderlust/packages"
	"wanderlust/pay"
	"wanderlust/ratelim"
	"wanderlust/rdx"
	"wanderlust/routes"
	"wanderlust/users"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		// HSTS (must be on HTTPS)
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		// handlers that may be cached override this
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// Hijack lets the live feed upgrade through the logger.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// loggingMiddleware logs each request method, path, status and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		ev := log.Info()
		if rec.status >= 500 {
			ev = log.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Str("remote", r.RemoteAddr).
			Dur("took", time.Since(start)).
			Msg("[HTTP] request")
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func setupRouter(d routes.Deps) *httprouter.Router {
	router := httprouter.New()
	router.GET("/health", Index)
	routes.RoutesWrapper(router, d)
	return router
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logging.Init(cfg.Log.Level, cfg.Log.Pretty)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("[Main] invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Connect(ctx, cfg.Mongo); err != nil {
		log.Fatal().Err(err).Msg("[Main] mongo unavailable")
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("[Main] index creation failed")
	}
	if err := rdx.Connect(ctx, cfg.Redis); err != nil {
		log.Fatal().Err(err).Msg("[Main] redis unavailable")
	}
	middleware.Init(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	packageStore := packages.NewMongoStore(db.PackagesCollection)
	bookingStore := bookings.NewMongoStore(db.BookingsCollection)
	userStore := users.NewMongoStore(db.UsersCollection)

	bookingSvc := bookings.NewService(bookingStore, packageStore, mq.NewEmitter(rdx.Conn))
	locks := rdx.NewLocker(rdx.Conn)
	paySvc := pay.NewPaymentService(
		pay.NewClient(cfg.Payment),
		bookingSvc,
		pay.NewMongoStore(db.PaymentsCollection),
		locks,
		cfg.Payment,
	)
	bookingSvc.SetRefunder(paySvc)
	bookingSvc.SetLocker(locks)

	authHandler := auth.NewHandler(userStore)
	middleware.FindUser = authHandler.FindUser

	mail, err := mailer.New(cfg.Mail, cfg.Payment.Currency, packageStore)
	if err != nil {
		log.Fatal().Err(err).Msg("[Main] mail templates")
	}
	if !cfg.Mail.Enabled() {
		log.Warn().Msg("[Main] SMTP_HOST not set; booking emails are logged only")
	}

	hub := livefeed.NewHub()
	go hub.Run(ctx)
	go mq.StartBookingWorker(ctx, rdx.Conn, hub, mail)

	limiter := ratelim.NewRateLimiter(30, 10)
	go limiter.RunSweeper(ctx.Done())

	router := setupRouter(routes.Deps{
		Packages:    packages.NewHandler(packageStore),
		Bookings:    bookings.NewHandler(bookingSvc, cfg.Voucher.Secret),
		Payments:    paySvc,
		Idempotency: pay.NewMongoIdempotencyStore(db.IdempotencyCollection),
		Media:       media.NewHandler(media.NewHostClient(cfg.Media), cfg.Media.MaxWidth),
		Auth:        authHandler,
		Users:       users.NewHandler(userStore),
		Dashboard:   admin.NewHandler(packageStore, userStore, bookingStore, bookingSvc),
		Home:        home.NewHandler(home.NewMongoStore(db.HomeCollection)),
		LiveFeed:    livefeed.Handler(hub, livefeed.NewUpgrader(cfg.HTTP.CORSOrigins)),
		Limiter:     limiter,
	})

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.HTTP.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		ExposedHeaders:   []string{"Idempotent-Replayed", "Content-Disposition"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           loggingMiddleware(securityHeaders(corsHandler)),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("[Main] server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("[Main] listen failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("[Main] shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("[Main] graceful shutdown failed")
	}
	if err := rdx.Conn.Close(); err != nil {
		log.Warn().Err(err).Msg("[Main] redis close")
	}
	if err := db.Disconnect(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("[Main] mongo disconnect")
	}
	log.Info().Msg("[Main] server stopped cleanly")
}
