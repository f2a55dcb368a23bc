package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zhima-Mochi/readify/internal/application"
	"github.com/Zhima-Mochi/readify/internal/application/account"
	"github.com/Zhima-Mochi/readify/internal/application/apptest"
	appotp "github.com/Zhima-Mochi/readify/internal/application/otp"
	"github.com/Zhima-Mochi/readify/internal/domain"
	acct "github.com/Zhima-Mochi/readify/internal/domain/account"
	domotp "github.com/Zhima-Mochi/readify/internal/domain/otp"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/id"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/security"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	svc       *account.Service
	otp       *appotp.Service
	store     *memory.Store
	mailer    *apptest.Mailer
	publisher *apptest.Publisher
	clock     *apptest.Clock
	hasher    *security.BcryptHasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, &apptest.Publisher{}, observability.Nop())
}

func newFixtureWith(t *testing.T, pub *apptest.Publisher, tel observability.Observability) *fixture {
	t.Helper()
	store := memory.NewStore()
	mailer := &apptest.Mailer{}
	clock := apptest.NewClock(time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC))
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	otpSvc := appotp.NewService(store.OTPs(), hasher, mailer, domotp.DefaultPolicy(), observability.Nop()).
		WithCodeSource(apptest.Codes("424242")).
		WithClock(clock.Now)
	tokens, err := security.NewTokenIssuer(security.TokenConfig{AccessSecret: "a", RefreshSecret: "r"})
	require.NoError(t, err)

	svc := account.NewService(account.Deps{
		Accounts:  store.Accounts(),
		Pending:   store.PendingRegistrations(),
		OTP:       otpSvc,
		Hasher:    hasher,
		Tokens:    tokens,
		Revoker:   memory.NewTokenRevoker(),
		IDs:       id.NewObjectIDGenerator(),
		Publisher: pub,
	}, 15*time.Minute, tel).WithClock(clock.Now)
	return &fixture{svc: svc, otp: otpSvc, store: store, mailer: mailer, publisher: pub, clock: clock, hasher: hasher}
}

func (f *fixture) seed(t *testing.T, email, password string, role acct.Role, status acct.Status) *acct.Account {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	acc := acct.New(id.NewObjectIDGenerator().NewID(), email, hash, acct.Profile{FirstName: "Linh"}, role, status)
	require.NoError(t, f.store.Accounts().Insert(context.Background(), acc))
	return acc
}

func TestRegisterAndVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.Register(ctx, account.RegisterInput{
		Email:           "  New.Reader@Example.com ",
		Password:        "s3cret!",
		ConfirmPassword: "s3cret!",
		Profile:         acct.Profile{FirstName: "An", LastName: "Nguyen"},
	})
	require.NoError(t, err)
	mail, ok := f.mailer.Last()
	require.True(t, ok)
	assert.Equal(t, "new.reader@example.com", mail.To)

	// registering again while the code is outstanding re-sends instead of failing
	f.clock.Advance(2 * time.Minute)
	require.NoError(t, f.svc.Register(ctx, account.RegisterInput{Email: "new.reader@example.com", Password: "s3cret!", ConfirmPassword: "s3cret!"}))
	assert.Len(t, f.mailer.Sent, 2)

	_, err = f.svc.VerifyRegistration(ctx, "new.reader@example.com", "000000")
	assert.ErrorIs(t, err, domotp.ErrInvalid)

	acc, err := f.svc.VerifyRegistration(ctx, "new.reader@example.com", "424242")
	require.NoError(t, err)
	assert.Equal(t, acct.RoleUser, acc.Role)
	assert.Equal(t, acct.StatusActive, acc.Status)
	assert.Equal(t, []string{"account.registered"}, f.publisher.Names())

	_, err = f.store.PendingRegistrations().Get(ctx, "new.reader@example.com")
	assert.ErrorIs(t, err, acct.ErrRegistrationGone)

	err = f.svc.Register(ctx, account.RegisterInput{Email: "new.reader@example.com", Password: "x", ConfirmPassword: "x"})
	assert.ErrorIs(t, err, acct.ErrEmailExists)
}

func TestVerifyRegistrationSurvivesPublishFailure(t *testing.T) {
	logs := apptest.NewLogs()
	f := newFixtureWith(t, &apptest.Publisher{Err: errors.New("bus full")}, logs.Telemetry())
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, account.RegisterInput{Email: "reader@example.com", Password: "s3cret!", ConfirmPassword: "s3cret!"}))

	acc, err := f.svc.VerifyRegistration(ctx, "reader@example.com", "424242")
	require.NoError(t, err)
	assert.Equal(t, acct.StatusActive, acc.Status)

	var statuses []any
	for _, e := range logs.Find("use_case_done") {
		if e.Fields["use_case"] == "account.verify_registration" {
			statuses = append(statuses, e.Fields["status"])
		}
	}
	assert.Equal(t, []any{"EVENT_PUBLISH_FAILED"}, statuses)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.Register(ctx, account.RegisterInput{Email: "a@b.c", Password: "one", ConfirmPassword: "two"})
	assert.ErrorIs(t, err, acct.ErrPasswordMismatch)

	dob := f.clock.Now().AddDate(-10, 0, 0)
	err = f.svc.Register(ctx, account.RegisterInput{
		Email: "kid@b.c", Password: "p", ConfirmPassword: "p",
		Profile: acct.Profile{DateOfBirth: &dob},
	})
	assert.ErrorIs(t, err, acct.ErrTooYoung)
}

func TestVerifyRegistrationAfterPendingExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.PendingRegistrations().Upsert(ctx, &acct.PendingRegistration{
		Email:     "late@example.com",
		ExpiresAt: f.clock.Now().Add(-time.Minute),
	}))
	require.NoError(t, f.otp.Send(ctx, "late@example.com", domotp.PurposeRegister))

	_, err := f.svc.VerifyRegistration(ctx, "late@example.com", "424242")
	assert.ErrorIs(t, err, acct.ErrRegistrationGone)
}

func TestLoginStatusRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "ok@example.com", "pw", acct.RoleUser, acct.StatusActive)
	f.seed(t, "banned@example.com", "pw", acct.RoleUser, acct.StatusBanned)
	f.seed(t, "unverified@example.com", "pw", acct.RoleUser, acct.StatusNotActiveEmail)
	f.seed(t, "inactive@example.com", "pw", acct.RoleUser, acct.StatusInactive)

	cases := []struct {
		email, password string
		want            error
	}{
		{"nobody@example.com", "pw", acct.ErrInvalidCredentials},
		{"ok@example.com", "wrong", acct.ErrInvalidCredentials},
		{"banned@example.com", "wrong", acct.ErrInvalidCredentials},
		{"banned@example.com", "pw", acct.ErrBanned},
		{"unverified@example.com", "pw", acct.ErrNotVerified},
		{"inactive@example.com", "pw", acct.ErrInactive},
	}
	for _, tc := range cases {
		_, err := f.svc.Login(ctx, tc.email, tc.password)
		assert.ErrorIs(t, err, tc.want, tc.email)
	}

	res, err := f.svc.Login(ctx, "OK@example.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken.Value)
	assert.NotEmpty(t, res.RefreshToken.Value)
	require.NotNil(t, res.Account.LastLoginAt)
	assert.Equal(t, f.clock.Now(), *res.Account.LastLoginAt)
}

func TestRefreshAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.seed(t, "ok@example.com", "pw", acct.RoleSeller, acct.StatusActive)

	res, err := f.svc.Login(ctx, "ok@example.com", "pw")
	require.NoError(t, err)

	actor, claims, err := f.svc.Authenticate(ctx, res.AccessToken.Value)
	require.NoError(t, err)
	assert.Equal(t, application.Actor{UserID: acc.ID, Role: acct.RoleSeller}, actor)

	fresh, err := f.svc.RefreshToken(ctx, res.RefreshToken.Value)
	require.NoError(t, err)
	assert.NotEqual(t, res.AccessToken.ID, fresh.ID)

	_, err = f.svc.RefreshToken(ctx, res.AccessToken.Value)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, f.svc.Logout(ctx, claims, res.RefreshToken.Value))
	_, _, err = f.svc.Authenticate(ctx, res.AccessToken.Value)
	assert.ErrorIs(t, err, application.ErrUnauthorized)
	_, err = f.svc.RefreshToken(ctx, res.RefreshToken.Value)
	assert.ErrorIs(t, err, application.ErrUnauthorized)

	// a banned account cannot refresh
	res, err = f.svc.Login(ctx, "ok@example.com", "pw")
	require.NoError(t, err)
	acc.SetStatus(acct.StatusBanned)
	require.NoError(t, f.store.Accounts().Update(ctx, acc))
	_, err = f.svc.RefreshToken(ctx, res.RefreshToken.Value)
	assert.ErrorIs(t, err, acct.ErrBanned)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "ok@example.com", "old", acct.RoleUser, acct.StatusActive)
	f.seed(t, "banned@example.com", "old", acct.RoleUser, acct.StatusBanned)

	assert.ErrorIs(t, f.svc.ForgotPassword(ctx, "nobody@example.com"), acct.ErrNotFound)
	assert.ErrorIs(t, f.svc.ForgotPassword(ctx, "banned@example.com"), acct.ErrDeletedOrBanned)
	require.NoError(t, f.svc.ForgotPassword(ctx, "ok@example.com"))
	// outstanding code plus cooldown still answers success
	require.NoError(t, f.svc.ForgotPassword(ctx, "ok@example.com"))
	assert.NoError(t, f.svc.ResendForgotPasswordOTP(ctx, "nobody@example.com"))

	err := f.svc.ResetPassword(ctx, account.ResetPasswordInput{Email: "ok@example.com", OTP: "424242", NewPassword: "new", ConfirmPassword: "nope"})
	assert.ErrorIs(t, err, acct.ErrPasswordMismatch)

	require.NoError(t, f.svc.ResetPassword(ctx, account.ResetPasswordInput{Email: "ok@example.com", OTP: "424242", NewPassword: "new", ConfirmPassword: "new"}))
	_, err = f.svc.Login(ctx, "ok@example.com", "old")
	assert.ErrorIs(t, err, acct.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "ok@example.com", "new")
	assert.NoError(t, err)
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.seed(t, "ok@example.com", "pw", acct.RoleUser, acct.StatusActive)

	name := "  Mai "
	updated, err := f.svc.UpdateProfile(ctx, acc.ID, acct.ProfilePatch{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Mai", updated.FirstName)

	young := f.clock.Now().AddDate(-12, 0, 0)
	_, err = f.svc.UpdateProfile(ctx, acc.ID, acct.ProfilePatch{DateOfBirth: &young})
	assert.ErrorIs(t, err, acct.ErrTooYoung)

	banned := f.seed(t, "banned@example.com", "pw", acct.RoleUser, acct.StatusBanned)
	_, err = f.svc.UpdateProfile(ctx, banned.ID, acct.ProfilePatch{FirstName: &name})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	me, err := f.svc.Me(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mai", me.FirstName)
}

func TestAdminManagesCustomers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateAccount(ctx, apptest.Customer, account.CreateAccountInput{Email: "x@y.z", Password: "p"})
	assert.ErrorIs(t, err, application.ErrForbidden)

	acc, err := f.svc.CreateAccount(ctx, apptest.Admin, account.CreateAccountInput{
		Email: "Buyer@Example.com", Password: "p", Profile: acct.Profile{FirstName: "Hoa", Phone: "0901"},
	})
	require.NoError(t, err)
	assert.Equal(t, acct.RoleUser, acc.Role)
	assert.Equal(t, acct.StatusActive, acc.Status)
	assert.True(t, security.IsHash(acc.PasswordHash))

	other := f.seed(t, "other@example.com", "pw", acct.RoleUser, acct.StatusActive)
	taken := "other@example.com"
	_, err = f.svc.EditAccount(ctx, apptest.Admin, acc.ID, account.EditAccountInput{Email: &taken})
	assert.ErrorIs(t, err, acct.ErrEmailExists)

	staff := f.seed(t, "seller@example.com", "pw", acct.RoleSeller, acct.StatusActive)
	_, err = f.svc.EditAccount(ctx, apptest.Admin, staff.ID, account.EditAccountInput{})
	assert.ErrorIs(t, err, acct.ErrNotCustomer)

	list, err := f.svc.ListAccounts(ctx, apptest.Admin, account.ListAccountsInput{Query: "hoa 0901"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, acc.ID, list.Items[0].ID)

	list, err = f.svc.ListAccounts(ctx, apptest.Admin, account.ListAccountsInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.Meta.Total)

	require.NoError(t, f.svc.DeleteAccount(ctx, apptest.Admin, other.ID))
	assert.ErrorIs(t, f.svc.DeleteAccount(ctx, apptest.Admin, other.ID), acct.ErrAlreadyDeleted)

	deleted := true
	list, err = f.svc.ListAccounts(ctx, apptest.Admin, account.ListAccountsInput{IsDeleted: &deleted})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, other.ID, list.Items[0].ID)
}

func TestStaffAdministration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddStaff(ctx, apptest.Admin, account.CreateAccountInput{Email: "w@example.com", Password: "p", Role: acct.RoleUser})
	assert.ErrorIs(t, err, acct.ErrInvalidRole)

	_, err = f.svc.AddStaff(ctx, apptest.Admin, account.CreateAccountInput{Email: "w@example.com", Password: "p", Role: acct.RoleWarehouse})
	require.NoError(t, err)
	f.seed(t, "customer@example.com", "pw", acct.RoleUser, acct.StatusActive)

	list, err := f.svc.ListStaff(ctx, apptest.Admin, account.ListAccountsInput{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, acct.RoleWarehouse, list.Items[0].Role)

	seller := acct.RoleSeller
	list, err = f.svc.ListStaff(ctx, apptest.Admin, account.ListAccountsInput{Role: &seller})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestMaintenance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seed(t, "a@example.com", "pw", acct.RoleUser, acct.StatusNotActiveEmail)
	f.seed(t, "b@example.com", "pw", acct.RoleUser, acct.StatusNotActiveEmail)

	plain := acct.New(id.NewObjectIDGenerator().NewID(), "plain@example.com", "legacy", acct.Profile{}, acct.RoleUser, acct.StatusActive)
	require.NoError(t, f.store.Accounts().Insert(ctx, plain))

	n, err := f.svc.VerifyAllAccounts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	got, err := f.store.Accounts().Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, acct.StatusActive, got.Status)

	done, err := f.svc.HashPlaintextPasswords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, done)
	_, err = f.svc.Login(ctx, "plain@example.com", "legacy")
	assert.NoError(t, err)

	_, err = f.svc.VerifyAccountByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
