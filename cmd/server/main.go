package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/bachatgat/ledger/internal/config"
	"github.com/bachatgat/ledger/internal/handler"
	"github.com/bachatgat/ledger/internal/repository"
	"github.com/bachatgat/ledger/internal/service"
	"github.com/bachatgat/ledger/internal/storage"
	"github.com/bachatgat/ledger/pkg/logger"
	"github.com/bachatgat/ledger/pkg/response"
)

func main() {
	// Populate the environment from .env when present, mainly for local runs.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Repositories
	memberRepo := repository.NewMemberRepository(db)
	contribRepo := repository.NewContributionRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	balanceRepo := repository.NewBalanceRepository(db)
	txm := repository.NewTxManager(db)

	// Services
	memberService := service.NewMemberService(memberRepo)
	contributionService := service.NewContributionService(contribRepo, loanRepo, paymentRepo, balanceRepo, memberRepo, txm, redisClient, cfg)
	loanService := service.NewLoanService(loanRepo, paymentRepo, balanceRepo, memberRepo, txm, redisClient, cfg)
	balanceService := service.NewBalanceService(balanceRepo, memberRepo, loanRepo, contribRepo, paymentRepo, txm, redisClient, cfg)

	// Handlers
	memberHandler := handler.NewMemberHandler(memberService)
	contributionHandler := handler.NewContributionHandler(contributionService)
	loanHandler := handler.NewLoanHandler(loanService)
	balanceHandler := handler.NewBalanceHandler(balanceService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	router := setupRoutes(memberHandler, contributionHandler, loanHandler, balanceHandler, healthHandler)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(
	memberHandler *handler.MemberHandler,
	contributionHandler *handler.ContributionHandler,
	loanHandler *handler.LoanHandler,
	balanceHandler *handler.BalanceHandler,
	healthHandler *handler.HealthHandler,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Members
	api.HandleFunc("/members", memberHandler.Create).Methods("POST")
	api.HandleFunc("/members", memberHandler.List).Methods("GET")
	api.HandleFunc("/members/{memberId}", memberHandler.Get).Methods("GET")
	api.HandleFunc("/members/{memberId}", memberHandler.Update).Methods("PUT")
	api.HandleFunc("/members/{memberId}", memberHandler.Delete).Methods("DELETE")
	api.HandleFunc("/members/{memberId}/due", contributionHandler.AmountDue).Methods("GET")
	api.HandleFunc("/members/{memberId}/contributions", contributionHandler.History).Methods("GET")
	api.HandleFunc("/members/{memberId}/loans", loanHandler.ListByMember).Methods("GET")

	// Contributions
	api.HandleFunc("/contributions", contributionHandler.Submit).Methods("POST")
	api.HandleFunc("/contributions", contributionHandler.ApprovedForPeriod).Methods("GET")
	api.HandleFunc("/contributions/pending", contributionHandler.Pending).Methods("GET")
	api.HandleFunc("/contributions/{contributionId}/approve", contributionHandler.Approve).Methods("POST")
	api.HandleFunc("/contributions/{contributionId}/reject", contributionHandler.Reject).Methods("POST")
	api.HandleFunc("/contributions/{contributionId}", contributionHandler.Delete).Methods("DELETE")

	// Loans
	api.HandleFunc("/loans", loanHandler.Apply).Methods("POST")
	api.HandleFunc("/loans", loanHandler.List).Methods("GET")
	api.HandleFunc("/loans/{loanId}", loanHandler.Account).Methods("GET")
	api.HandleFunc("/loans/{loanId}", loanHandler.Review).Methods("PUT")
	api.HandleFunc("/loans/{loanId}/disburse", loanHandler.Disburse).Methods("POST")
	api.HandleFunc("/loans/{loanId}/reject", loanHandler.Reject).Methods("POST")
	api.HandleFunc("/loans/{loanId}/payment", loanHandler.RecordPayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/close", loanHandler.Close).Methods("POST")
	api.HandleFunc("/loans/{loanId}/payments", loanHandler.Payments).Methods("GET")

	// Pool balance and settings
	api.HandleFunc("/balance", balanceHandler.Get).Methods("GET")
	api.HandleFunc("/balance/deposit", balanceHandler.Deposit).Methods("POST")
	api.HandleFunc("/balance/withdraw", balanceHandler.Withdraw).Methods("POST")
	api.HandleFunc("/settings", balanceHandler.UpdateSettings).Methods("PUT")
	api.HandleFunc("/dashboard", balanceHandler.Summary).Methods("GET")

	return router
}
