package main

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	httpadp "loanledger-backend/internal/adapter/http"
	"loanledger-backend/internal/adapter/middleware"
	"loanledger-backend/internal/adapter/repository/mysql"
	"loanledger-backend/internal/config"
	"loanledger-backend/internal/domain/access"
	"loanledger-backend/internal/infrastructure/cache"
	"loanledger-backend/internal/infrastructure/db"
	"loanledger-backend/internal/usecase/ledger"
	"loanledger-backend/internal/usecase/repayment"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatal(err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal(err)
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}

	loans := mysql.NewLoanRepository(gdb)
	notes := mysql.NewNoteRepository(gdb)
	accessRepo := mysql.NewAccessRepository(gdb)
	uow := mysql.NewGormUoW(gdb)

	core := ledger.NewUsecase(loans, uow)
	repay := repayment.NewUsecase(core, loans, notes, cfg.RepayerPrincipal)

	bootstrapGrants(accessRepo, cfg)

	h := httpadp.NewHandler()
	loanHandler := httpadp.NewLoanHandler(core)
	repayHandler := httpadp.NewRepaymentHandler(repay)
	adminHandler := httpadp.NewAdminHandler(core)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())

	idemp := middleware.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)

	e.GET("/health", h.Health)
	e.GET("/loans/:loan_id", loanHandler.GetLoan)

	m := e.Group("", idemp)
	m.POST("/loans", loanHandler.CreateLoan)
	m.POST("/loans/:loan_id/start", loanHandler.StartLoan)

	m.POST("/notes/:note_id/repay", repayHandler.Repay)
	m.POST("/notes/:note_id/repay-part", repayHandler.RepayPart)
	m.POST("/notes/:note_id/repay-minimum", repayHandler.RepayPartMinimum)
	m.POST("/notes/:note_id/claim", repayHandler.Claim)
	m.DELETE("/notes/:note_id", repayHandler.BurnNote)

	m.POST("/admin/pause", adminHandler.Pause)
	m.DELETE("/admin/pause", adminHandler.Unpause)
	m.PUT("/admin/fee", adminHandler.SetOriginationFee)
	m.POST("/admin/fees/withdraw", adminHandler.WithdrawFees)
	m.POST("/admin/grants", adminHandler.Grant)
	m.DELETE("/admin/grants", adminHandler.Revoke)
	m.POST("/admin/collateral", adminHandler.RegisterCollateral)
	m.POST("/admin/currency/credit", adminHandler.CreditAccount)

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// bootstrapGrants seeds the grant table so the service is operable on first
// boot: the configured admin gets the super-capability and the repayment
// façade principal gets the repayer capability.
func bootstrapGrants(repo access.Repository, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := repo.Grant(ctx, access.CapabilityRepayer, cfg.RepayerPrincipal); err != nil {
		log.Fatalf("bootstrap repayer grant: %v", err)
	}
	if err := repo.Grant(ctx, access.CapabilityAdmin, cfg.AdminPrincipal); err != nil {
		log.Fatalf("bootstrap admin grant: %v", err)
	}
}
