package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linkedevents/counters"
	"linkedevents/db"
	"linkedevents/metrics"
	"linkedevents/rdx"
	"linkedevents/routes"
	"linkedevents/seed"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s - %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func setupRouter() *httprouter.Router {
	router := httprouter.New()
	router.GET("/health", Index)
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())

	routes.AddEventRoutes(router)
	routes.AddPlaceRoutes(router)
	routes.AddKeywordRoutes(router)
	routes.AddOrganizationRoutes(router)
	routes.AddRegistrationRoutes(router)
	routes.AddImageRoutes(router)
	routes.AddSearchRoutes(router)
	routes.AddLanguageRoutes(router)
	routes.AddFeedbackRoutes(router)
	routes.AddStaticRoutes(router)

	return router
}

// startJobs schedules the periodic counter and cache maintenance.
func startJobs() *cron.Cron {
	c := cron.New()
	c.AddFunc("@every 1h", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := counters.RecountKeywords(ctx); err != nil {
			log.Printf("keyword recount: %v", err)
		}
		if err := counters.RecountPlaces(ctx); err != nil {
			log.Printf("place recount: %v", err)
		}
	})
	c.AddFunc("@every 15m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := counters.RefreshOngoing(ctx); err != nil {
			log.Printf("ongoing cache refresh: %v", err)
		}
	})
	c.Start()
	return c
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	seedFile := flag.String("seed", "", "seed reference data from a YAML file and exit")
	recount := flag.Bool("recount", false, "recompute keyword and place counters and exit")
	refreshOngoing := flag.Bool("refresh-ongoing", false, "rebuild the ongoing-event caches and exit")
	flag.Parse()

	db.Connect()
	rdx.Connect()

	if *seedFile != "" || *recount || *refreshOngoing {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		if *seedFile != "" {
			if err := seed.Load(ctx, *seedFile); err != nil {
				log.Fatalf("seed: %v", err)
			}
		}
		if *recount {
			if err := counters.RecountKeywords(ctx); err != nil {
				log.Fatalf("keyword recount: %v", err)
			}
			if err := counters.RecountPlaces(ctx); err != nil {
				log.Fatalf("place recount: %v", err)
			}
		}
		if *refreshOngoing {
			if err := counters.RefreshOngoing(ctx); err != nil {
				log.Fatalf("ongoing cache refresh: %v", err)
			}
		}
		db.Disconnect(context.Background())
		return
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	} else if port[0] != ':' {
		port = ":" + port
	}

	router := setupRouter()
	jobs := startJobs()

	// middleware: CORS -> security headers -> logging -> metrics -> router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "apikey"},
		AllowCredentials: true,
	}).Handler(metrics.Instrument(router))

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	jobs.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	db.Disconnect(ctx)
	log.Println("Server stopped")
}
