package account

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/readify/internal/application"
	domain "github.com/Zhima-Mochi/readify/internal/domain/account"
	domotp "github.com/Zhima-Mochi/readify/internal/domain/otp"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/pkg/textutil"
)

type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	Profile         domain.Profile
}

// Register stages the sign-up and mails a REGISTER code.
func (s *Service) Register(ctx context.Context, in RegisterInput) (err error) {
	ctx, call := s.inst.Start(ctx, "account.register", "Register")
	defer call.End(&err)

	email := textutil.NormalizeEmail(in.Email)
	if in.Password != in.ConfirmPassword {
		return domain.ErrPasswordMismatch
	}
	taken, err := s.accounts.EmailTaken(ctx, email, "")
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	if taken {
		return domain.ErrEmailExists
	}
	now := s.clock()
	if in.Profile.DateOfBirth != nil {
		if err = domain.CheckAge(*in.Profile.DateOfBirth, now); err != nil {
			return err
		}
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return err
	}
	pending := &domain.PendingRegistration{
		Email:        email,
		PasswordHash: hash,
		Profile:      in.Profile,
		ExpiresAt:    now.Add(s.pendingTTL),
		CreatedAt:    now,
	}
	if err = s.pending.Upsert(ctx, pending); err != nil {
		return application.WrapRepositoryError(err)
	}

	err = s.otp.Send(ctx, email, domotp.PurposeRegister)
	if errors.Is(err, domotp.ErrAlreadySent) {
		call.Status("OTP_RESENT")
		err = s.otp.Resend(ctx, email, domotp.PurposeRegister)
	}
	return err
}

// VerifyRegistration consumes the code and turns the pending record into an active account.
func (s *Service) VerifyRegistration(ctx context.Context, email, code string) (_ *domain.Account, err error) {
	ctx, call := s.inst.Start(ctx, "account.verify_registration", "VerifyRegistration")
	defer call.End(&err)

	email = textutil.NormalizeEmail(email)
	if err = s.otp.Verify(ctx, email, domotp.PurposeRegister, code); err != nil {
		return nil, err
	}
	pending, err := s.pending.Get(ctx, email)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if pending.Expired(s.clock()) {
		return nil, domain.ErrRegistrationGone
	}

	acc := domain.New(s.ids.NewID(), email, pending.PasswordHash, pending.Profile, domain.RoleUser, domain.StatusActive)
	if err = s.accounts.Insert(ctx, acc); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if delErr := s.pending.Delete(ctx, email); delErr != nil {
		call.Logger().Warn("pending_registration_cleanup_failed", observability.F("error", delErr))
	}
	call.Field("account_id", acc.ID)
	if pubErr := s.inst.Publish(ctx, s.publisher, domain.NewRegisteredEvent(acc)); pubErr != nil {
		call.Status("EVENT_PUBLISH_FAILED")
	}
	return acc, nil
}

// ResendRegistrationOTP requires a live pending registration.
func (s *Service) ResendRegistrationOTP(ctx context.Context, email string) (err error) {
	ctx, call := s.inst.Start(ctx, "account.resend_registration_otp", "ResendRegistrationOTP")
	defer call.End(&err)

	email = textutil.NormalizeEmail(email)
	pending, err := s.pending.Get(ctx, email)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	if pending.Expired(s.clock()) {
		return domain.ErrRegistrationGone
	}
	return s.otp.Resend(ctx, email, domotp.PurposeRegister)
}

type LoginResult struct {
	AccessToken  Token
	RefreshToken Token
	Account      *domain.Account
}

func (s *Service) Login(ctx context.Context, email, password string) (_ *LoginResult, err error) {
	ctx, call := s.inst.Start(ctx, "account.login", "Login")
	defer call.End(&err)

	acc, err := s.accounts.FindByEmail(ctx, textutil.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if acc.IsDeleted || !s.hasher.Compare(acc.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	if err = acc.CanLogin(); err != nil {
		return nil, err
	}

	access, err := s.tokens.IssueAccess(acc)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(acc)
	if err != nil {
		return nil, err
	}
	acc.MarkLoggedIn(s.clock())
	if err = s.accounts.Update(ctx, acc); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	call.Field("account_id", acc.ID)
	return &LoginResult{AccessToken: access, RefreshToken: refresh, Account: acc}, nil
}

// RefreshToken issues a new access token for a still active account.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (_ Token, err error) {
	ctx, call := s.inst.Start(ctx, "account.refresh_token", "RefreshToken")
	defer call.End(&err)

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return Token{}, application.ErrUnauthorized
	}
	if err = s.checkRevoked(ctx, claims.TokenID); err != nil {
		return Token{}, err
	}
	acc, err := s.accounts.Get(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return Token{}, application.ErrUnauthorized
	}
	if err != nil {
		return Token{}, application.WrapRepositoryError(err)
	}
	if err = acc.CanLogin(); err != nil {
		return Token{}, err
	}
	return s.tokens.IssueAccess(acc)
}

// Logout revokes the access token and, when given, the refresh token.
func (s *Service) Logout(ctx context.Context, access Claims, refreshToken string) (err error) {
	ctx, call := s.inst.Start(ctx, "account.logout", "Logout")
	defer call.End(&err)

	if err = s.revoker.Revoke(ctx, access.TokenID, access.ExpiresAt); err != nil {
		return application.WrapRepositoryError(err)
	}
	if refreshToken == "" {
		return nil
	}
	rc, parseErr := s.tokens.ParseRefresh(refreshToken)
	if parseErr != nil {
		call.Status("REFRESH_TOKEN_IGNORED")
		return nil
	}
	return application.WrapRepositoryError(s.revoker.Revoke(ctx, rc.TokenID, rc.ExpiresAt))
}

// Authenticate verifies an access token and resolves the caller.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (application.Actor, Claims, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return application.Actor{}, Claims{}, application.ErrUnauthorized
	}
	if err = s.checkRevoked(ctx, claims.TokenID); err != nil {
		return application.Actor{}, Claims{}, err
	}
	return application.Actor{UserID: claims.UserID, Role: claims.Role}, claims, nil
}

func (s *Service) checkRevoked(ctx context.Context, tokenID string) error {
	revoked, err := s.revoker.Revoked(ctx, tokenID)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	if revoked {
		return application.ErrUnauthorized
	}
	return nil
}

// ForgotPassword mails a reset code. Delivery problems are not reported to the caller.
func (s *Service) ForgotPassword(ctx context.Context, email string) (err error) {
	ctx, call := s.inst.Start(ctx, "account.forgot_password", "ForgotPassword")
	defer call.End(&err)

	email = textutil.NormalizeEmail(email)
	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	if !acc.IsActive() {
		return domain.ErrDeletedOrBanned
	}
	otpErr := s.otp.Send(ctx, email, domotp.PurposeForgotPassword)
	if errors.Is(otpErr, domotp.ErrAlreadySent) {
		otpErr = s.otp.Resend(ctx, email, domotp.PurposeForgotPassword)
	}
	if otpErr != nil {
		call.Status("OTP_SUPPRESSED")
		call.Logger().Warn("forgot_password_otp_failed", observability.F("error", otpErr.Error()))
	}
	return nil
}

// ResendForgotPasswordOTP always succeeds.
func (s *Service) ResendForgotPasswordOTP(ctx context.Context, email string) (err error) {
	ctx, call := s.inst.Start(ctx, "account.resend_forgot_password_otp", "ResendForgotPasswordOTP")
	defer call.End(&err)

	if otpErr := s.otp.Resend(ctx, textutil.NormalizeEmail(email), domotp.PurposeForgotPassword); otpErr != nil {
		call.Status("OTP_SUPPRESSED")
		call.Logger().Debug("forgot_password_resend_failed", observability.F("error", otpErr.Error()))
	}
	return nil
}

type ResetPasswordInput struct {
	Email           string
	OTP             string
	NewPassword     string
	ConfirmPassword string
}

func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) (err error) {
	ctx, call := s.inst.Start(ctx, "account.reset_password", "ResetPassword")
	defer call.End(&err)

	if in.NewPassword != in.ConfirmPassword {
		return domain.ErrPasswordMismatch
	}
	email := textutil.NormalizeEmail(in.Email)
	if err = s.otp.Verify(ctx, email, domotp.PurposeForgotPassword, in.OTP); err != nil {
		return err
	}
	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return err
	}
	acc.SetPassword(hash)
	return application.WrapRepositoryError(s.accounts.Update(ctx, acc))
}
