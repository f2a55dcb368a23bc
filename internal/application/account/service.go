package account

import (
	"time"

	"github.com/Zhima-Mochi/readify/internal/application"
	domain "github.com/Zhima-Mochi/readify/internal/domain/account"
	domoutbox "github.com/Zhima-Mochi/readify/internal/domain/outbox"
	"github.com/Zhima-Mochi/readify/internal/observability"
)

const (
	accountService    = "account-service"
	defaultPendingTTL = 15 * time.Minute
	maxSearchTerms    = 5
)

type Deps struct {
	Accounts  domain.Repository
	Pending   domain.PendingRepository
	OTP       OTPSender
	Hasher    application.PasswordHasher
	Tokens    TokenIssuer
	Revoker   TokenRevoker
	IDs       application.IDGenerator
	Publisher domoutbox.Publisher
}

type Service struct {
	accounts   domain.Repository
	pending    domain.PendingRepository
	otp        OTPSender
	hasher     application.PasswordHasher
	tokens     TokenIssuer
	revoker    TokenRevoker
	ids        application.IDGenerator
	publisher  domoutbox.Publisher
	pendingTTL time.Duration
	clock      application.Clock
	inst       *application.Instrumentation
}

func NewService(d Deps, pendingTTL time.Duration, tel observability.Observability) *Service {
	if pendingTTL <= 0 {
		pendingTTL = defaultPendingTTL
	}
	return &Service{
		accounts:   d.Accounts,
		pending:    d.Pending,
		otp:        d.OTP,
		hasher:     d.Hasher,
		tokens:     d.Tokens,
		revoker:    d.Revoker,
		ids:        d.IDs,
		publisher:  d.Publisher,
		pendingTTL: pendingTTL,
		clock:      application.SystemClock,
		inst:       application.NewInstrumentation(accountService, tel),
	}
}

func (s *Service) WithClock(c application.Clock) *Service {
	s.clock = c
	return s
}
