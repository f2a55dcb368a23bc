package account

import (
	"strings"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain"
)

var (
	ErrNotFound           = domain.NewError(domain.ErrNotFound, "ACCOUNT_NOT_FOUND", "account: not found")
	ErrEmailExists        = domain.NewError(domain.ErrInvalid, "EMAIL_ALREADY_EXISTS", "account: email already exists")
	ErrPasswordMismatch   = domain.NewError(domain.ErrInvalid, "PASSWORD_MISMATCH", "account: password and confirm password do not match")
	ErrInvalidCredentials = domain.NewError(domain.ErrUnauthorized, "INVALID_CREDENTIALS", "account: email or password is incorrect")
	ErrBanned             = domain.NewError(domain.ErrForbidden, "ACCOUNT_BANNED", "account: account is banned")
	ErrNotVerified        = domain.NewError(domain.ErrForbidden, "ACCOUNT_NOT_VERIFIED", "account: email is not verified")
	ErrInactive           = domain.NewError(domain.ErrForbidden, "ACCOUNT_INACTIVE", "account: account is inactive")
	ErrDeleted            = domain.NewError(domain.ErrNotFound, "ACCOUNT_DELETED", "account: account is deleted")
	ErrAlreadyDeleted     = domain.NewError(domain.ErrInvalid, "ACCOUNT_ALREADY_DELETED", "account: account is already deleted")
	ErrDeletedOrBanned    = domain.NewError(domain.ErrInvalid, "ACCOUNT_IS_DELETED_OR_BANNED", "account: account is deleted or banned")
	ErrNotCustomer        = domain.NewError(domain.ErrInvalid, "ACCOUNT_NOT_CUSTOMER", "account: only customer accounts can be managed here")
	ErrInvalidRole        = domain.NewError(domain.ErrInvalid, "INVALID_ROLE", "account: invalid role")
	ErrTooYoung           = domain.NewError(domain.ErrInvalid, "AGE_TOO_LOW", "account: user must be at least 13 years old")
	ErrRegistrationGone   = domain.NewError(domain.ErrNotFound, "REGISTRATION_NOT_FOUND", "account: registration not found or expired")
)

type Role int

const (
	RoleUser      Role = 0
	RoleAdmin     Role = 1
	RoleSeller    Role = 2
	RoleWarehouse Role = 3
)

func (r Role) Valid() bool { return r >= RoleUser && r <= RoleWarehouse }

// IsStaff reports whether the role belongs to back-office staff.
func (r Role) IsStaff() bool { return r == RoleAdmin || r == RoleSeller || r == RoleWarehouse }

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "USER"
	case RoleAdmin:
		return "ADMIN"
	case RoleSeller:
		return "SELLER"
	case RoleWarehouse:
		return "WAREHOUSE"
	default:
		return "UNKNOWN"
	}
}

// StaffRoles lists the back-office roles.
var StaffRoles = []Role{RoleAdmin, RoleSeller, RoleWarehouse}

type Status int

const (
	StatusBanned         Status = -1
	StatusInactive       Status = 0
	StatusActive         Status = 1
	StatusNotActiveEmail Status = 2
)

func (s Status) Valid() bool { return s >= StatusBanned && s <= StatusNotActiveEmail }

// Sex: 0 unknown, 1 male, 2 female.
type Sex int

const (
	SexUnknown Sex = 0
	SexMale    Sex = 1
	SexFemale  Sex = 2
)

const MinAge = 13

type Account struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	AvatarURL    string
	Address      string
	DateOfBirth  *time.Time
	Sex          Sex
	Role         Role
	Status       Status
	IsDeleted    bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the personal data shared by registration, admin creation and profile updates.
type Profile struct {
	FirstName   string
	LastName    string
	Phone       string
	Address     string
	DateOfBirth *time.Time
	Sex         Sex
}

func New(id, email, passwordHash string, p Profile, role Role, status Status) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		Phone:        strings.TrimSpace(p.Phone),
		Address:      strings.TrimSpace(p.Address),
		DateOfBirth:  p.DateOfBirth,
		Sex:          p.Sex,
		Role:         role,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// CanLogin applies the login status rules in order.
func (a *Account) CanLogin() error {
	if a.IsDeleted {
		return ErrInvalidCredentials
	}
	switch a.Status {
	case StatusBanned:
		return ErrBanned
	case StatusNotActiveEmail:
		return ErrNotVerified
	case StatusInactive:
		return ErrInactive
	}
	return nil
}

func (a *Account) IsActive() bool {
	return !a.IsDeleted && a.Status == StatusActive
}

func (a *Account) MarkLoggedIn(at time.Time) {
	t := at.UTC()
	a.LastLoginAt = &t
	a.touch()
}

func (a *Account) SetPassword(hash string) {
	a.PasswordHash = hash
	a.touch()
}

func (a *Account) SetStatus(s Status) {
	a.Status = s
	a.touch()
}

func (a *Account) SetAvatar(url string) {
	a.AvatarURL = url
	a.touch()
}

func (a *Account) SoftDelete() error {
	if a.IsDeleted {
		return ErrAlreadyDeleted
	}
	a.IsDeleted = true
	a.touch()
	return nil
}

// ProfilePatch carries optional profile changes; nil fields are left untouched.
type ProfilePatch struct {
	FirstName   *string
	LastName    *string
	Phone       *string
	AvatarURL   *string
	Address     *string
	DateOfBirth *time.Time
	Sex         *Sex
}

func (a *Account) ApplyProfile(p ProfilePatch, now time.Time) error {
	if p.DateOfBirth != nil {
		if err := CheckAge(*p.DateOfBirth, now); err != nil {
			return err
		}
		dob := p.DateOfBirth.UTC()
		a.DateOfBirth = &dob
	}
	if p.FirstName != nil {
		a.FirstName = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		a.LastName = strings.TrimSpace(*p.LastName)
	}
	if p.Phone != nil {
		a.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.AvatarURL != nil {
		a.AvatarURL = strings.TrimSpace(*p.AvatarURL)
	}
	if p.Address != nil {
		a.Address = strings.TrimSpace(*p.Address)
	}
	if p.Sex != nil {
		a.Sex = *p.Sex
	}
	a.touch()
	return nil
}

// CheckAge requires dob to be at least MinAge years before now.
func CheckAge(dob, now time.Time) error {
	if dob.After(now.AddDate(-MinAge, 0, 0)) {
		return ErrTooYoung
	}
	return nil
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.DateOfBirth != nil {
		d := *a.DateOfBirth
		c.DateOfBirth = &d
	}
	if a.LastLoginAt != nil {
		l := *a.LastLoginAt
		c.LastLoginAt = &l
	}
	return &c
}

func (a *Account) touch() {
	a.UpdatedAt = time.Now().UTC()
}
