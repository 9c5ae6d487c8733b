package main

import (
	"context"
	stlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spinwheel/logger"
	"spinwheel/service"
	"spinwheel/utils"
	"spinwheel/web"
	"spinwheel/web/config"
	"spinwheel/web/controllers"
	"spinwheel/web/db"
	"spinwheel/web/email"
	"spinwheel/web/middleware"
	"spinwheel/web/offers"
	"spinwheel/web/pending"
	"spinwheel/web/services"
	"spinwheel/web/session"
	"spinwheel/web/sheets"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	mailTimeout          = 20 * time.Second
	limiterCleanupPeriod = 5 * time.Minute
)

type store interface {
	services.UserStore
	services.CouponStore
}

// split lets the memory store and the gorm repositories be wired the same way.
type split struct {
	services.UserStore
	services.CouponStore
}

func main() {
	utils.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		stlog.Fatalln("config:", err)
	}
	gin.SetMode(cfg.GinMode)

	log, err := logger.New(cfg.AppEnv, "webservice")
	if err != nil {
		stlog.Fatalln("logger:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("webservice exited", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	st, closeDB, err := openStore(cfg, log)
	if err != nil {
		return err
	}

	catalog := offers.Default()
	if cfg.OffersFile != "" {
		if catalog, err = offers.Load(cfg.OffersFile); err != nil {
			closeDB()
			return err
		}
	}
	log.Info("offer catalog loaded", zap.Int("offers", catalog.Len()))

	pend, closePending, err := openPending(ctx, cfg, log)
	if err != nil {
		closeDB()
		return err
	}

	var sender email.Sender
	smtpSender, err := email.NewSMTPSender(email.SMTPConfig{
		Server:   cfg.SMTPServer,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Pass:     cfg.SMTPPass,
		FromAddr: cfg.FromAddr,
		FromName: cfg.FromName,
	})
	if err != nil {
		log.Warn("email disabled, signups and password resets will fail", zap.Error(err))
		sender = email.Disabled{Reason: err}
	} else {
		sender = smtpSender
	}
	mailer := email.NewMailer(sender, mailTimeout)

	accounts := services.NewAccounts(services.AccountsDeps{
		Users:       st,
		Coupons:     st,
		Pending:     pend,
		Mail:        mailer,
		Tokens:      session.NewIssuer(cfg.JWTSecret, cfg.TokenTTL, nil),
		FrontendURL: cfg.FrontendURL,
		Log:         log.Named("accounts"),
	})
	coupons := services.NewCoupons(services.CouponsDeps{
		Store:    st,
		Catalog:  catalog,
		Mirror:   openMirror(ctx, cfg, log),
		Location: cfg.Location,
		Log:      log.Named("coupons"),
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute, log)
	limiter.StartCleanup(ctx, limiterCleanupPeriod)

	ctl := controllers.New(accounts, coupons, st, log, cfg.Development())
	router := web.NewRouter(ctl, accounts, web.RouterConfig{
		Log:            log,
		CORSOrigins:    cfg.CORSOrigins,
		AuthLimiter:    limiter,
		TrustedProxies: cfg.TrustedProxies,
	})

	return service.Start(ctx, "", cfg.Port, router, log, accounts.Wait, coupons.Wait, closePending, closeDB)
}

func openStore(cfg config.Config, log *zap.Logger) (store, func(), error) {
	if cfg.DBDriver == "memory" {
		log.Warn("using in-memory store, data is lost on restart")
		return db.NewMemoryStore(), func() {}, nil
	}

	gdb, err := db.Connect(db.Config{
		Driver:         cfg.DBDriver,
		DSN:            cfg.DSN,
		ConnectTimeout: cfg.ConnectTimeout,
		MaxOpenConns:   20,
		MaxIdleConns:   5,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(gdb); err != nil {
			log.Warn("close database", zap.Error(err))
		}
	}
	return split{
		UserStore:   db.NewUserRepo(gdb, cfg.OpTimeout),
		CouponStore: db.NewCouponRepo(gdb, cfg.OpTimeout),
	}, closeDB, nil
}

func openPending(ctx context.Context, cfg config.Config, log *zap.Logger) (pending.Store, func(), error) {
	if cfg.RedisAddr == "" {
		mem := pending.NewMemoryStore(nil)
		mem.StartSweeper(ctx, cfg.PendingSweep, log)
		return mem, func() {}, nil
	}

	rdb, err := pending.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ConnectTimeout)
	if err != nil {
		return nil, nil, err
	}
	log.Info("pending signups kept in redis", zap.String("addr", cfg.RedisAddr))
	return pending.NewRedisStore(rdb, nil), func() {
		if err := rdb.Close(); err != nil {
			log.Warn("close redis", zap.Error(err))
		}
	}, nil
}

// openMirror falls back to no mirroring when the sheet is not configured or
// cannot be prepared. Coupons never depend on the sheet.
func openMirror(ctx context.Context, cfg config.Config, log *zap.Logger) sheets.Mirror {
	if cfg.SheetsID == "" || cfg.SheetsKeyJSON == "" {
		log.Info("google sheets mirror disabled")
		return sheets.Noop{}
	}
	// Background flushes after shutdown still need credentials.
	g, err := sheets.NewGoogle(context.WithoutCancel(ctx), sheets.Config{
		SpreadsheetID:   cfg.SheetsID,
		Tab:             cfg.SheetsTab,
		CredentialsJSON: cfg.SheetsKeyJSON,
		Location:        cfg.Location,
	})
	if err != nil {
		log.Warn("google sheets mirror unavailable", zap.Error(err))
		return sheets.Noop{}
	}
	return g
}
