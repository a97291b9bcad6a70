package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"campusblog/pkg/blog"
	"campusblog/pkg/config"
	"campusblog/pkg/logger"
	"campusblog/pkg/middleware"
	"campusblog/pkg/stats"
	"campusblog/pkg/user"
	"campusblog/pkg/user/api"
)

func init() {
	rand.Seed(time.Now().UnixNano())
}

func main() {
	withSeed := flag.Bool("seed", false, "generate fake users and blogs before serving")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalln("main:", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalln("main:", err)
	}
	l := logger.Run(cfg.LogLevel)
	defer l.Sync()

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		l.Fatalf("main: unable to open PostgreSQL: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		l.Fatalf("main: unable to reach PostgreSQL: %v", err)
	}
	if err := user.Migrate(db); err != nil {
		l.Fatalf("main: %v", err)
	}

	mongoCtx, mongoCtxCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer mongoCtxCancel()
	mongoClient, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		l.Fatalf("main: can't connect to MongoDB: %v", err)
	}
	if err := mongoClient.Ping(mongoCtx, nil); err != nil {
		l.Fatalf("main: unable to reach MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			l.Errorf("main: failed disconnecting from MongoDB: %v", err)
		}
	}()

	blogsRepo := blog.NewBlogRepo(mongoClient.Database(cfg.MongoDB).Collection("blogs"))
	if err := blogsRepo.EnsureIndexes(mongoCtx); err != nil {
		l.Fatalf("main: %v", err)
	}
	usersRepo := user.NewUserRepo(db)

	queue := newQueue(cfg, l)
	ownerCache, err := blog.NewOwnerCache(cfg.OwnerCacheTTL)
	if err != nil {
		l.Fatalf("main: %v", err)
	}
	blogService := blog.NewService(blogsRepo, usersRepo, stats.NewScheduler(queue), blog.WithOwnerCache(ownerCache))

	if *withSeed {
		if err := seed(context.Background(), usersRepo, blogService); err != nil {
			l.Fatalf("main: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := stats.NewWorker(queue, stats.NewUpdater(blogsRepo, usersRepo), stats.WorkerConfig{
		Workers:     cfg.StatsWorkers,
		MaxAttempts: cfg.StatsMaxAttempts,
		Backoff:     cfg.StatsBackoff,
		JobTimeout:  cfg.StatsJobTimeout,
	})
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(logger.WithLogger(ctx, l.With("component", "stats")))
	}()

	quartz := cron.New()
	if _, err := stats.NewReconciler(blogsRepo, queue).Schedule(quartz, cfg.StatsReconcileSpec, time.Minute); err != nil {
		l.Fatalf("main: bad STATS_RECONCILE_SPEC: %v", err)
	}
	quartz.Start()
	defer quartz.Stop()

	blogHandler := blog.NewBlogHandler(blogService)
	userHandler := api.NewUserHandler(usersRepo)

	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()

	// Blogs
	v1.HandleFunc("/blogs", blogHandler.List).Methods("GET")
	v1.HandleFunc("/blogs", blogHandler.Add).Methods("POST")
	v1.HandleFunc("/blogs/{blog_id}", blogHandler.Get).Methods("GET")
	v1.HandleFunc("/blogs/{blog_id}", blogHandler.Update).Methods("PATCH")
	v1.HandleFunc("/blogs/{blog_id}", blogHandler.Delete).Methods("DELETE")
	v1.HandleFunc("/blogs/{blog_id}/upvote", blogHandler.Upvote).Methods("POST")

	// Users
	v1.HandleFunc("/users/signup", userHandler.Signup).Methods("POST")
	v1.HandleFunc("/users/{user_id}/blogs", blogHandler.ListByUser).Methods("GET")
	v1.HandleFunc("/users/{user_id}", userHandler.Get).Methods("GET")

	logMiddleware := middleware.NewLoggingMiddleware(l)
	r.Use(logMiddleware.SetupTracing)
	r.Use(logMiddleware.SetupLogging)
	r.Use(logMiddleware.AccessLog)

	// Static path is relative to the working directory.
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		l.Infof("Serving at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Errorf("main: server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	l.Info("main: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Errorf("main: graceful shutdown failed: %v", err)
	}
	wg.Wait()
}

func newQueue(cfg *config.Config, l *zap.SugaredLogger) stats.Queue {
	if cfg.RedisAddr == "" {
		l.Warn("main: REDIS_ADDR is empty, stats jobs are kept in memory")
		return stats.NewMemoryQueue(1024)
	}
	return stats.NewRedisQueue(stats.NewRedisPool(cfg.RedisAddr), cfg.StatsQueueKey)
}
