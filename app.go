package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	apporder "github.com/Zhima-Mochi/readify/internal/application/order"
	"github.com/Zhima-Mochi/readify/internal/bootstrap"
	"github.com/Zhima-Mochi/readify/internal/config"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/id"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/mail"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/mongo"
	obsinfra "github.com/Zhima-Mochi/readify/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/redis"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/security"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/temporal"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/vnpay"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/pkg/logging"
)

// app holds everything one process needs. close releases it in reverse order.
type app struct {
	cfg      config.Config
	zap      *zap.Logger
	log      observability.Logger
	tel      observability.Observability
	bus      *outbox.Bus
	services *bootstrap.Services
	temporal client.Client

	closers []func(ctx context.Context) error
}

func newApp(ctx context.Context, cfg config.Config, reg prometheus.Registerer) (*app, error) {
	zl, err := logging.NewLogger(cfg.App.ServiceName, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	zap.ReplaceGlobals(zl)
	base := zaplogger.Wrap(logging.WithTrace(zl, logging.SystemTraceID, logging.SystemSpanID))
	shutdownTracing := oteltrace.Install(cfg.App.ServiceName)
	tel := obsinfra.NewFromRegistry(
		oteltrace.New(cfg.App.ServiceName),
		base,
		prometrics.NewWithRegisterer(reg, "", ""),
	)
	a := &app{cfg: cfg, zap: zl, log: base, tel: tel}
	a.closers = append(a.closers, shutdownTracing)

	repos, err := a.openStore(ctx)
	if err != nil {
		a.close(context.Background())
		return nil, err
	}

	adapters, err := a.adapters()
	if err != nil {
		a.close(context.Background())
		return nil, err
	}
	a.services = bootstrap.NewServices(repos, adapters, tel)
	return a, nil
}

func (a *app) openStore(ctx context.Context) (bootstrap.Repositories, error) {
	if a.cfg.Storage.Store == config.StoreMemory {
		a.log.Warn("using_memory_store")
		return bootstrap.MemoryRepositories(memory.NewStore()), nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	store, err := mongo.Connect(connectCtx, a.cfg.Storage.MongoURI, a.cfg.Storage.MongoDatabase)
	if err != nil {
		return bootstrap.Repositories{}, err
	}
	a.closers = append(a.closers, store.Close)
	if err := store.EnsureIndexes(connectCtx); err != nil {
		return bootstrap.Repositories{}, fmt.Errorf("mongo indexes: %w", err)
	}
	a.log.Info("mongo_connected", observability.F("database", a.cfg.Storage.MongoDatabase))
	return bootstrap.MongoRepositories(store), nil
}

func (a *app) adapters() (bootstrap.Adapters, error) {
	tokens, err := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  a.cfg.JWT.AccessSecret,
		RefreshSecret: a.cfg.JWT.RefreshSecret,
		AccessTTL:     a.cfg.JWT.AccessTTL(),
		RefreshTTL:    a.cfg.JWT.RefreshTTL(),
		Issuer:        a.cfg.App.ServiceName,
	})
	if err != nil {
		return bootstrap.Adapters{}, err
	}

	a.bus = outbox.NewBus(a.log, a.tel, outbox.Options{})
	ad := bootstrap.Adapters{
		Hasher:      security.NewBcryptHasher(a.cfg.Password.BcryptCost),
		Tokens:      tokens,
		IDs:         id.NewObjectIDGenerator(),
		Publisher:   a.bus,
		OTPPolicy:   a.cfg.OTP.Policy(),
		PendingTTL:  a.cfg.PendingTTL(),
		ExpireAfter: a.cfg.VNPay.ExpireAfter,
	}

	if addr := a.cfg.Storage.RedisAddr; addr != "" {
		rdb := redis.NewClient(addr, a.cfg.Storage.RedisPassword)
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		ad.Revoker = redis.NewTokenRevoker(rdb)
		ad.BookCache = redis.NewBookCache(rdb, redis.DefaultBookTTL, a.log)
		a.log.Info("redis_enabled", observability.F("addr", addr))
	} else {
		ad.Revoker = memory.NewTokenRevoker()
	}

	if a.cfg.Mail.SMTPAddr != "" {
		ad.Mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Addr:     a.cfg.Mail.SMTPAddr,
			Username: a.cfg.Mail.SMTPUser,
			Password: a.cfg.Mail.SMTPPass,
			From:     a.cfg.Mail.From,
		})
	} else {
		a.log.Warn("smtp_not_configured", observability.F("mailer", "log"))
		ad.Mailer = mail.NewLogMailer(a.log)
	}

	if a.cfg.VNPayEnabled() {
		ad.Gateway = vnpay.New(vnpay.Config{
			TmnCode:     a.cfg.VNPay.TmnCode,
			SecretKey:   a.cfg.VNPay.SecretKey,
			PayURL:      a.cfg.VNPay.URL,
			ReturnURL:   a.cfg.VNPay.ReturnURL,
			ExpireAfter: a.cfg.VNPay.ExpireAfter,
		})
	} else {
		a.log.Warn("vnpay_not_configured")
		ad.Gateway = vnpay.Disabled{}
	}

	ad.Expiry = apporder.NopExpiryScheduler{}
	if hp := a.cfg.Storage.TemporalHostPort; hp != "" {
		c, err := temporal.Dial(hp, a.log)
		if err != nil {
			return bootstrap.Adapters{}, err
		}
		a.temporal = c
		a.closers = append(a.closers, func(context.Context) error { c.Close(); return nil })
		ad.Expiry = temporal.NewScheduler(c)
	}
	return ad, nil
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("shutdown_close_failed", observability.F("error", err.Error()))
		}
	}
	a.closers = nil
	_ = a.zap.Sync()
}
