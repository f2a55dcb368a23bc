package httppresentation

import (
	"net/http"
	"strings"
	"time"

	"github.com/Zhima-Mochi/readify/internal/application"
	appaccount "github.com/Zhima-Mochi/readify/internal/application/account"
	"github.com/Zhima-Mochi/readify/internal/domain/account"
	"github.com/Zhima-Mochi/readify/internal/domain/otp"
)

func (h *Handler) routeAccounts(mux *http.ServeMux) {
	h.handle(mux, "POST /otp/send", h.handleSendOTP, h.limited())
	h.handle(mux, "POST /otp/re-send", h.handleResendOTP, h.limited())
	h.handle(mux, "POST /otp/verify", h.handleVerifyOTP, h.limited())

	h.handle(mux, "POST /auth/login", h.handleLogin, h.limited())
	h.handle(mux, "POST /auth/logout", h.handleLogout, h.auth())
	h.handle(mux, "POST /auth/refresh-token", h.handleRefreshToken, h.limited())

	h.handle(mux, "POST /accounts/register", h.handleRegister, h.limited())
	h.handle(mux, "POST /accounts/otp/resend", h.handleResendRegistrationOTP, h.limited())
	h.handle(mux, "POST /accounts/otp/verify", h.handleVerifyRegistration, h.limited())
	h.handle(mux, "POST /accounts/forgot-password", h.handleForgotPassword, h.limited())
	h.handle(mux, "POST /accounts/forgot-password/resend", h.handleResendForgotPassword, h.limited())
	h.handle(mux, "POST /accounts/reset-password", h.handleResetPassword, h.limited())
	h.handle(mux, "GET /accounts/me", h.handleMe, h.auth())
	h.handle(mux, "PATCH /accounts/me", h.handleUpdateProfile, h.auth())
	h.handle(mux, "POST /accounts/me/avatar", h.handleAttachAvatar, h.auth())

	h.handle(mux, "GET /accounts", h.handleListAccounts, h.auth())
	h.handle(mux, "GET /accounts/{id}", h.handleGetAccount, h.auth())
	h.handle(mux, "POST /accounts/create", h.handleCreateAccount, h.auth())
	h.handle(mux, "PUT /accounts/edit/{id}", h.handleEditAccount, h.auth())
	h.handle(mux, "DELETE /accounts/delete/{id}", h.handleDeleteAccount, h.auth())

	h.handle(mux, "GET /staff", h.handleListStaff, h.auth())
	h.handle(mux, "POST /staff", h.handleAddStaff, h.auth())
}

func actorOf(r *http.Request) application.Actor {
	a, _ := actorFrom(r.Context())
	return a
}

type otpRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,oneof=REGISTER FORGOT_PASSWORD"`
}

type verifyOTPRequest struct {
	otpRequest
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

func (h *Handler) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.OTP.Send(r.Context(), req.Email, otp.Purpose(req.Purpose)); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "OTP sent", nil)
}

func (h *Handler) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.OTP.Resend(r.Context(), req.Email, otp.Purpose(req.Purpose)); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "OTP re-sent", nil)
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.OTP.Verify(r.Context(), req.Email, otp.Purpose(req.Purpose), req.OTP); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "OTP verified", nil)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	h.setTokenCookie(w, cookieAccessToken, res.AccessToken)
	h.setTokenCookie(w, cookieRefreshToken, res.RefreshToken)
	writeData(w, http.StatusOK, "login successful", toLogin(res))
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.RefreshToken == "" {
		if c, err := r.Cookie(cookieRefreshToken); err == nil {
			req.RefreshToken = c.Value
		}
	}
	if req.RefreshToken == "" {
		writeError(w, application.ErrUnauthorized)
		return
	}
	tok, err := h.svc.Accounts.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	h.setTokenCookie(w, cookieAccessToken, tok)
	writeOK(w, tokenDTO{AccessToken: tok.Value, ExpiresAt: tok.ExpiresAt})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	refresh := ""
	if c, err := r.Cookie(cookieRefreshToken); err == nil {
		refresh = c.Value
	}
	if err := h.svc.Accounts.Logout(r.Context(), claims, refresh); err != nil {
		writeError(w, err)
		return
	}
	h.clearCookie(w, cookieAccessToken)
	h.clearCookie(w, cookieRefreshToken)
	writeData(w, http.StatusOK, "logged out", nil)
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, name string, tok appaccount.Token) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    tok.Value,
		Path:     "/",
		Expires:  tok.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: h.cfg.SecureCookies})
}

type profileFields struct {
	FirstName   string     `json:"firstName" validate:"required,max=50"`
	LastName    string     `json:"lastName" validate:"required,max=50"`
	Phone       string     `json:"phone" validate:"omitempty,min=9,max=15"`
	Address     string     `json:"address" validate:"omitempty,max=255"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	Sex         int        `json:"sex" validate:"gte=0,lte=2"`
}

func (p profileFields) profile() account.Profile {
	return account.Profile{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Phone:       p.Phone,
		Address:     p.Address,
		DateOfBirth: p.DateOfBirth,
		Sex:         account.Sex(p.Sex),
	}
}

type registerRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6,max=64"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
	profileFields
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	err := h.svc.Accounts.Register(r.Context(), appaccount.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Profile:         req.profile(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "verification code sent, check your email", nil)
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyRegistrationRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

func (h *Handler) handleResendRegistrationOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.Accounts.ResendRegistrationOTP(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "OTP re-sent", nil)
}

func (h *Handler) handleVerifyRegistration(w http.ResponseWriter, r *http.Request) {
	var req verifyRegistrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	acc, err := h.svc.Accounts.VerifyRegistration(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "account created", toAccount(acc))
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.Accounts.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "if the account exists a reset code has been sent", nil)
}

func (h *Handler) handleResendForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.Accounts.ResendForgotPasswordOTP(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "if the account exists a reset code has been sent", nil)
}

type resetPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	OTP             string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=64"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	err := h.svc.Accounts.ResetPassword(r.Context(), appaccount.ResetPasswordInput{
		Email:           req.Email,
		OTP:             req.OTP,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "password has been reset", nil)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.Accounts.Me(r.Context(), actorOf(r).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toAccount(acc))
}

type profilePatchRequest struct {
	FirstName   *string    `json:"firstName" validate:"omitempty,min=1,max=50"`
	LastName    *string    `json:"lastName" validate:"omitempty,min=1,max=50"`
	Phone       *string    `json:"phone" validate:"omitempty,min=9,max=15"`
	AvatarURL   *string    `json:"avatarUrl" validate:"omitempty,url"`
	Address     *string    `json:"address" validate:"omitempty,max=255"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	Sex         *int       `json:"sex" validate:"omitempty,gte=0,lte=2"`
}

func (p profilePatchRequest) patch() account.ProfilePatch {
	out := account.ProfilePatch{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Phone:       p.Phone,
		AvatarURL:   p.AvatarURL,
		Address:     p.Address,
		DateOfBirth: p.DateOfBirth,
	}
	if p.Sex != nil {
		sex := account.Sex(*p.Sex)
		out.Sex = &sex
	}
	return out
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profilePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	acc, err := h.svc.Accounts.UpdateProfile(r.Context(), actorOf(r).UserID, req.patch())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toAccount(acc))
}

type mediaIDRequest struct {
	MediaID string `json:"mediaId" validate:"required"`
}

func (h *Handler) handleAttachAvatar(w http.ResponseWriter, r *http.Request) {
	var req mediaIDRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	acc, err := h.svc.Catalog.AttachAvatar(r.Context(), actorOf(r), req.MediaID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toAccount(acc))
}

func accountListInput(r *http.Request) (appaccount.ListAccountsInput, error) {
	in := appaccount.ListAccountsInput{ListQuery: listQuery(r), Query: strings.TrimSpace(r.URL.Query().Get("q"))}
	status, err := queryIntPtr(r, "status")
	if err != nil {
		return in, err
	}
	if status != nil {
		s := account.Status(*status)
		in.Status = &s
	}
	role, err := queryIntPtr(r, "role")
	if err != nil {
		return in, err
	}
	if role != nil {
		rl := account.Role(*role)
		in.Role = &rl
	}
	in.IsDeleted, err = queryBoolPtr(r, "isDeleted")
	return in, err
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	in, err := accountListInput(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Accounts.ListAccounts(r.Context(), actorOf(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, pageOf(res, toAccount))
}

func (h *Handler) handleListStaff(w http.ResponseWriter, r *http.Request) {
	in, err := accountListInput(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Accounts.ListStaff(r.Context(), actorOf(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, pageOf(res, toAccount))
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.Accounts.GetAccountDetail(r.Context(), actorOf(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toAccount(acc))
}

type createAccountRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=64"`
	Status   *int   `json:"status" validate:"omitempty,gte=-1,lte=2"`
	Role     int    `json:"role" validate:"gte=0,lte=3"`
	profileFields
}

func (req createAccountRequest) input() appaccount.CreateAccountInput {
	in := appaccount.CreateAccountInput{
		Email:    req.Email,
		Password: req.Password,
		Profile:  req.profile(),
		Role:     account.Role(req.Role),
	}
	if req.Status != nil {
		s := account.Status(*req.Status)
		in.Status = &s
	}
	return in
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	acc, err := h.svc.Accounts.CreateAccount(r.Context(), actorOf(r), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, toAccount(acc))
}

func (h *Handler) handleAddStaff(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	acc, err := h.svc.Accounts.AddStaff(r.Context(), actorOf(r), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, toAccount(acc))
}

type editAccountRequest struct {
	Email  *string `json:"email" validate:"omitempty,email"`
	Status *int    `json:"status" validate:"omitempty,gte=-1,lte=2"`
	profilePatchRequest
}

func (h *Handler) handleEditAccount(w http.ResponseWriter, r *http.Request) {
	var req editAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	in := appaccount.EditAccountInput{Email: req.Email, Profile: req.patch()}
	if req.Status != nil {
		s := account.Status(*req.Status)
		in.Status = &s
	}
	acc, err := h.svc.Accounts.EditAccount(r.Context(), actorOf(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, toAccount(acc))
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Accounts.DeleteAccount(r.Context(), actorOf(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, "account deleted", nil)
}
