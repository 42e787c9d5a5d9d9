package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/bachatgat/ledger/internal/config"
	"github.com/bachatgat/ledger/internal/repository"
	"github.com/bachatgat/ledger/internal/service"
	"github.com/bachatgat/ledger/pkg/logger"
)

func main() {
	log.Println("Starting ledger scheduler...")

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	memberRepo := repository.NewMemberRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	balanceRepo := repository.NewBalanceRepository(db)
	txm := repository.NewTxManager(db)

	loanService := service.NewLoanService(loanRepo, paymentRepo, balanceRepo, memberRepo, txm, nil, cfg)
	memberService := service.NewMemberService(memberRepo)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))
	setupCronJobs(c, loanService, memberService)

	c.Start()
	log.Println("Scheduler started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	c.Stop()
	log.Println("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, loanService *service.LoanService, memberService *service.MemberService) {
	// Daily job to flag idle loans as overdue (runs at midnight)
	_, err := c.AddFunc("0 0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		marked, err := loanService.MarkOverdueLoans(ctx)
		if err != nil {
			logger.Error("overdue loan scan failed", "error", err)
			return
		}
		logger.Info("overdue loan scan finished", "marked", marked)
	})
	if err != nil {
		log.Printf("Error scheduling overdue loan job: %v", err)
	}

	// Daily reminder scan at 9 AM
	_, err = c.AddFunc("0 0 9 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		now := time.Now()
		unpaid, borrowers, err := memberService.ReminderTargets(ctx, int(now.Month()), now.Year())
		if err != nil {
			logger.Error("reminder scan failed", "error", err)
			return
		}

		for _, m := range unpaid {
			logger.Info("contribution reminder", "member_id", m.ID, "username", m.Username)
		}
		for _, m := range borrowers {
			logger.Info("loan interest reminder", "member_id", m.ID, "username", m.Username)
		}
	})
	if err != nil {
		log.Printf("Error scheduling reminder job: %v", err)
	}

	log.Println("Cron jobs scheduled successfully")
}
