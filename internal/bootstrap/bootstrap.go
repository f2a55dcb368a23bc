// Package bootstrap wires repositories, adapters and application services for the server and the CLI.
package bootstrap

import (
	"time"

	"github.com/Zhima-Mochi/readify/internal/application"
	appaccount "github.com/Zhima-Mochi/readify/internal/application/account"
	appcart "github.com/Zhima-Mochi/readify/internal/application/cart"
	appcatalog "github.com/Zhima-Mochi/readify/internal/application/catalog"
	appinventory "github.com/Zhima-Mochi/readify/internal/application/inventory"
	appnotification "github.com/Zhima-Mochi/readify/internal/application/notification"
	apporder "github.com/Zhima-Mochi/readify/internal/application/order"
	appotp "github.com/Zhima-Mochi/readify/internal/application/otp"
	apppayment "github.com/Zhima-Mochi/readify/internal/application/payment"
	apppromotion "github.com/Zhima-Mochi/readify/internal/application/promotion"
	appreview "github.com/Zhima-Mochi/readify/internal/application/review"
	appwishlist "github.com/Zhima-Mochi/readify/internal/application/wishlist"
	"github.com/Zhima-Mochi/readify/internal/domain/account"
	"github.com/Zhima-Mochi/readify/internal/domain/book"
	"github.com/Zhima-Mochi/readify/internal/domain/cart"
	"github.com/Zhima-Mochi/readify/internal/domain/category"
	"github.com/Zhima-Mochi/readify/internal/domain/inventory"
	"github.com/Zhima-Mochi/readify/internal/domain/media"
	"github.com/Zhima-Mochi/readify/internal/domain/notification"
	"github.com/Zhima-Mochi/readify/internal/domain/order"
	"github.com/Zhima-Mochi/readify/internal/domain/otp"
	domoutbox "github.com/Zhima-Mochi/readify/internal/domain/outbox"
	"github.com/Zhima-Mochi/readify/internal/domain/payment"
	"github.com/Zhima-Mochi/readify/internal/domain/promotion"
	"github.com/Zhima-Mochi/readify/internal/domain/review"
	"github.com/Zhima-Mochi/readify/internal/domain/wishlist"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/mongo"
	"github.com/Zhima-Mochi/readify/internal/observability"
)

// Repositories is the storage seen by the services. Both stores fill it.
type Repositories struct {
	Tx                application.TxRunner
	Accounts          account.Repository
	Pending           account.PendingRepository
	OTPs              otp.Repository
	Categories        category.Repository
	Books             book.Repository
	Media             media.Repository
	Stocks            inventory.Repository
	Carts             cart.Repository
	Wishlists         wishlist.Repository
	Orders            order.Repository
	Promotions        promotion.Repository
	PromotionLogs     promotion.LogRepository
	Notifications     notification.Repository
	NotificationReads notification.ReadRepository
	Reviews           review.Repository
}

func MemoryRepositories(s *memory.Store) Repositories {
	return Repositories{
		Tx:                s,
		Accounts:          s.Accounts(),
		Pending:           s.PendingRegistrations(),
		OTPs:              s.OTPs(),
		Categories:        s.Categories(),
		Books:             s.Books(),
		Media:             s.Media(),
		Stocks:            s.Inventory(),
		Carts:             s.Carts(),
		Wishlists:         s.Wishlists(),
		Orders:            s.Orders(),
		Promotions:        s.Promotions(),
		PromotionLogs:     s.PromotionLogs(),
		Notifications:     s.Notifications(),
		NotificationReads: s.NotificationReads(),
		Reviews:           s.Reviews(),
	}
}

func MongoRepositories(s *mongo.Store) Repositories {
	return Repositories{
		Tx:                s,
		Accounts:          s.Accounts(),
		Pending:           s.PendingRegistrations(),
		OTPs:              s.OTPs(),
		Categories:        s.Categories(),
		Books:             s.Books(),
		Media:             s.Media(),
		Stocks:            s.Inventory(),
		Carts:             s.Carts(),
		Wishlists:         s.Wishlists(),
		Orders:            s.Orders(),
		Promotions:        s.Promotions(),
		PromotionLogs:     s.PromotionLogs(),
		Notifications:     s.Notifications(),
		NotificationReads: s.NotificationReads(),
		Reviews:           s.Reviews(),
	}
}

// Adapters are the outbound ports that vary by deployment.
type Adapters struct {
	Hasher    application.PasswordHasher
	Tokens    appaccount.TokenIssuer
	Revoker   appaccount.TokenRevoker
	Mailer    application.Mailer
	IDs       application.IDGenerator
	Publisher domoutbox.Publisher
	Gateway   payment.Gateway
	BookCache appcatalog.BookCache
	Expiry    apporder.ExpiryScheduler

	OTPPolicy   otp.Policy
	PendingTTL  time.Duration
	ExpireAfter time.Duration
}

type Services struct {
	OTP           *appotp.Service
	Accounts      *appaccount.Service
	Catalog       *appcatalog.Service
	Inventory     *appinventory.Service
	AdjustStock   *appinventory.AdjustStockUseCase
	Cart          *appcart.Service
	Wishlist      *appwishlist.Service
	Orders        *apporder.Service
	CreateOrder   *apporder.CreateOrderUseCase
	Payments      *apppayment.Service
	Promotions    *apppromotion.Service
	Notifications *appnotification.Service
	Reviews       *appreview.Service
}

// NewServices builds every application service over r and a.
func NewServices(r Repositories, a Adapters, tel observability.Observability) *Services {
	s := &Services{}
	s.OTP = appotp.NewService(r.OTPs, a.Hasher, a.Mailer, a.OTPPolicy, tel)
	s.Accounts = appaccount.NewService(appaccount.Deps{
		Accounts:  r.Accounts,
		Pending:   r.Pending,
		OTP:       s.OTP,
		Hasher:    a.Hasher,
		Tokens:    a.Tokens,
		Revoker:   a.Revoker,
		IDs:       a.IDs,
		Publisher: a.Publisher,
	}, a.PendingTTL, tel)
	s.Catalog = appcatalog.NewService(appcatalog.Deps{
		Categories: r.Categories,
		Books:      r.Books,
		Media:      r.Media,
		Stocks:     r.Stocks,
		Accounts:   r.Accounts,
		Tx:         r.Tx,
		IDs:        a.IDs,
		Cache:      a.BookCache,
	}, tel)
	s.Inventory = appinventory.NewService(r.Stocks, tel)
	s.AdjustStock = appinventory.NewAdjustStockUseCase(r.Stocks, a.Publisher, tel)
	s.Cart = appcart.NewService(r.Carts, r.Books, r.Stocks, a.IDs, tel)
	s.Wishlist = appwishlist.NewService(appwishlist.Deps{
		Wishlists: r.Wishlists,
		Carts:     r.Carts,
		Books:     r.Books,
		Stocks:    r.Stocks,
		Tx:        r.Tx,
		IDs:       a.IDs,
	}, tel)
	s.Payments = apppayment.NewService(r.Orders, a.Gateway, a.Publisher, tel)
	orderDeps := apporder.Deps{
		Orders:        r.Orders,
		Carts:         r.Carts,
		Stocks:        r.Stocks,
		Books:         r.Books,
		Promotions:    r.Promotions,
		PromotionLogs: r.PromotionLogs,
		Tx:            r.Tx,
		IDs:           a.IDs,
		Publisher:     a.Publisher,
		Expiry:        a.Expiry,
		Payments:      s.Payments,
		ExpireAfter:   a.ExpireAfter,
	}
	s.Orders = apporder.NewService(orderDeps, tel)
	s.CreateOrder = apporder.NewCreateOrderUseCase(orderDeps, tel)
	s.Promotions = apppromotion.NewService(r.Promotions, r.PromotionLogs, r.Accounts, r.Tx, a.IDs, tel)
	s.Notifications = appnotification.NewService(r.Notifications, r.NotificationReads, a.IDs, tel)
	s.Reviews = appreview.NewService(r.Reviews, r.Books, r.Orders, a.IDs, tel)
	return s
}
