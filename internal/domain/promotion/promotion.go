package promotion

import (
	"strings"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = domain.NewError(domain.ErrNotFound, "PROMOTION_NOT_FOUND", "promotion: not found")
	ErrCodeExists      = domain.NewError(domain.ErrConflict, "PROMOTION_CODE_EXISTS", "promotion: code already exists")
	ErrNotActive       = domain.NewError(domain.ErrInvalid, "PROMOTION_NOT_ACTIVE", "promotion: promotion is not active")
	ErrNotStarted      = domain.NewError(domain.ErrInvalid, "PROMOTION_NOT_STARTED", "promotion: promotion has not started yet")
	ErrExpired         = domain.NewError(domain.ErrInvalid, "PROMOTION_EXPIRED", "promotion: promotion has expired")
	ErrUsageLimit      = domain.NewError(domain.ErrInvalid, "PROMOTION_USAGE_LIMIT", "promotion: usage limit reached")
	ErrAlreadyUsed     = domain.NewError(domain.ErrInvalid, "PROMOTION_ALREADY_USED", "promotion: you have already used this promotion")
	ErrMinOrderValue   = domain.NewError(domain.ErrInvalid, "PROMOTION_MIN_ORDER_VALUE", "promotion: order value is below the minimum")
	ErrInvalidDates    = domain.NewError(domain.ErrInvalid, "PROMOTION_DATES_INVALID", "promotion: end date must be after start date")
	ErrInvalidPercent  = domain.NewError(domain.ErrInvalid, "PROMOTION_PERCENT_INVALID", "promotion: percent discount must be between 0 and 100")
	ErrInvalidValue    = domain.NewError(domain.ErrInvalid, "PROMOTION_VALUE_INVALID", "promotion: discount value must not be negative")
	ErrInvalidType     = domain.NewError(domain.ErrInvalid, "PROMOTION_TYPE_INVALID", "promotion: invalid discount type")
	ErrCodeRequired    = domain.NewError(domain.ErrInvalid, "PROMOTION_CODE_REQUIRED", "promotion: code is required")
	ErrImmutableField  = domain.NewError(domain.ErrInvalid, "PROMOTION_FIELD_IMMUTABLE", "promotion: code and start date cannot be changed")
	ErrLocked          = domain.NewError(domain.ErrInvalid, "PROMOTION_LOCKED", "promotion: discount settings are locked once the promotion has started or been used")
	ErrInUse           = domain.NewError(domain.ErrInvalid, "PROMOTION_IN_USE", "promotion: used promotions cannot be deleted")
	ErrAlreadyDeleted  = domain.NewError(domain.ErrInvalid, "PROMOTION_ALREADY_DELETED", "promotion: already deleted")
	ErrNoActiveAccount = domain.NewError(domain.ErrForbidden, "ACCOUNT_NOT_ACTIVE", "promotion: account is not active")
)

type DiscountType string

const (
	DiscountPercent DiscountType = "PERCENT"
	DiscountFixed   DiscountType = "FIXED"
)

func (t DiscountType) Valid() bool { return t == DiscountPercent || t == DiscountFixed }

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusExpired  Status = "EXPIRED"
)

func (s Status) Valid() bool { return s == StatusActive || s == StatusInactive || s == StatusExpired }

const ScopeOrder = "ORDER"

type Promotion struct {
	ID            string
	Code          string
	Name          string
	Description   string
	DiscountType  DiscountType
	DiscountValue int64
	MinOrderValue int64
	// MaxDiscount caps percent discounts; zero means uncapped.
	MaxDiscount int64
	StartDate   time.Time
	EndDate     time.Time
	// UsageLimit of zero means unlimited.
	UsageLimit  int64
	UsedCount   int64
	UsedByUsers []string
	Status      Status
	ApplyScope  string
	CreatedBy   string
	UpdatedBy   string
	IsDeleted   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalizeCode trims and uppercases a promotion code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Terms are the discount settings shared by create and update.
type Terms struct {
	DiscountType  DiscountType
	DiscountValue int64
	MinOrderValue int64
	MaxDiscount   int64
}

func (t Terms) validate() error {
	if !t.DiscountType.Valid() {
		return ErrInvalidType
	}
	if t.DiscountValue < 0 || t.MinOrderValue < 0 || t.MaxDiscount < 0 {
		return ErrInvalidValue
	}
	if t.DiscountType == DiscountPercent && t.DiscountValue > 100 {
		return ErrInvalidPercent
	}
	return nil
}

func New(id, code, name, description string, terms Terms, start, end time.Time, usageLimit int64, status Status, createdBy string) (*Promotion, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrCodeRequired
	}
	if err := terms.validate(); err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, ErrInvalidDates
	}
	if usageLimit < 0 {
		return nil, ErrInvalidValue
	}
	if status == "" {
		status = StatusInactive
	}
	if !status.Valid() {
		return nil, domain.NewError(domain.ErrInvalid, "PROMOTION_STATUS_INVALID", "promotion: invalid status")
	}
	now := time.Now().UTC()
	return &Promotion{
		ID:            id,
		Code:          code,
		Name:          strings.TrimSpace(name),
		Description:   strings.TrimSpace(description),
		DiscountType:  terms.DiscountType,
		DiscountValue: terms.DiscountValue,
		MinOrderValue: terms.MinOrderValue,
		MaxDiscount:   terms.MaxDiscount,
		StartDate:     start.UTC(),
		EndDate:       end.UTC(),
		UsageLimit:    usageLimit,
		UsedByUsers:   []string{},
		Status:        status,
		ApplyScope:    ScopeOrder,
		CreatedBy:     createdBy,
		UpdatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (p *Promotion) UsedBy(userID string) bool {
	for _, u := range p.UsedByUsers {
		if u == userID {
			return true
		}
	}
	return false
}

func (p *Promotion) LimitReached() bool {
	return p.UsageLimit > 0 && p.UsedCount >= p.UsageLimit
}

func (p *Promotion) Started(now time.Time) bool { return !now.Before(p.StartDate) }

func (p *Promotion) Ended(now time.Time) bool { return now.After(p.EndDate) }

// Validate applies the redemption checks in their fixed order.
func (p *Promotion) Validate(userID string, orderValue int64, now time.Time) error {
	if p.IsDeleted {
		return ErrNotFound
	}
	if p.Status != StatusActive {
		return ErrNotActive
	}
	if !p.Started(now) {
		return ErrNotStarted
	}
	if p.Ended(now) {
		return ErrExpired
	}
	if p.LimitReached() {
		return ErrUsageLimit
	}
	if userID != "" && p.UsedBy(userID) {
		return ErrAlreadyUsed
	}
	if orderValue < p.MinOrderValue {
		return ErrMinOrderValue.Withf("promotion: minimum order value is %d", p.MinOrderValue)
	}
	return nil
}

// Discount computes the amount taken off orderValue, never more than orderValue itself.
// Percent discounts are floored to whole currency units and capped by MaxDiscount.
func (p *Promotion) Discount(orderValue int64) int64 {
	if orderValue <= 0 {
		return 0
	}
	var d int64
	switch p.DiscountType {
	case DiscountPercent:
		d = decimal.NewFromInt(orderValue).
			Mul(decimal.NewFromInt(p.DiscountValue)).
			Div(decimal.NewFromInt(100)).
			Floor().
			IntPart()
		if p.MaxDiscount > 0 && d > p.MaxDiscount {
			d = p.MaxDiscount
		}
	case DiscountFixed:
		d = p.DiscountValue
	}
	if d > orderValue {
		d = orderValue
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Patch holds optional updates; nil fields are left untouched.
type Patch struct {
	Code          *string
	Name          *string
	Description   *string
	DiscountType  *DiscountType
	DiscountValue *int64
	MinOrderValue *int64
	MaxDiscount   *int64
	StartDate     *time.Time
	EndDate       *time.Time
	UsageLimit    *int64
	Status        *Status
}

func (pt Patch) touchesTerms() bool {
	return pt.DiscountType != nil || pt.DiscountValue != nil || pt.MinOrderValue != nil || pt.MaxDiscount != nil
}

// ExpireIfEnded flips the status to EXPIRED once the end date has passed and reports whether it did.
func (p *Promotion) ExpireIfEnded(now time.Time) bool {
	if !p.Ended(now) || p.Status == StatusExpired {
		return false
	}
	p.Status = StatusExpired
	p.touch()
	return true
}

// Apply validates and applies a staff edit.
func (p *Promotion) Apply(pt Patch, by string, now time.Time) error {
	if pt.Code != nil && NormalizeCode(*pt.Code) != p.Code {
		return ErrImmutableField
	}
	if pt.StartDate != nil && !pt.StartDate.Equal(p.StartDate) {
		return ErrImmutableField
	}
	if pt.touchesTerms() && (p.Started(now) || p.UsedCount > 0) {
		return ErrLocked
	}

	terms := Terms{DiscountType: p.DiscountType, DiscountValue: p.DiscountValue, MinOrderValue: p.MinOrderValue, MaxDiscount: p.MaxDiscount}
	if pt.DiscountType != nil {
		terms.DiscountType = *pt.DiscountType
	}
	if pt.DiscountValue != nil {
		terms.DiscountValue = *pt.DiscountValue
	}
	if pt.MinOrderValue != nil {
		terms.MinOrderValue = *pt.MinOrderValue
	}
	if pt.MaxDiscount != nil {
		terms.MaxDiscount = *pt.MaxDiscount
	}
	if err := terms.validate(); err != nil {
		return err
	}
	end := p.EndDate
	if pt.EndDate != nil {
		end = pt.EndDate.UTC()
	}
	if !end.After(p.StartDate) {
		return ErrInvalidDates
	}
	if pt.UsageLimit != nil && *pt.UsageLimit < 0 {
		return ErrInvalidValue
	}
	if pt.Status != nil && !pt.Status.Valid() {
		return domain.NewError(domain.ErrInvalid, "PROMOTION_STATUS_INVALID", "promotion: invalid status")
	}

	p.DiscountType = terms.DiscountType
	p.DiscountValue = terms.DiscountValue
	p.MinOrderValue = terms.MinOrderValue
	p.MaxDiscount = terms.MaxDiscount
	p.EndDate = end
	if pt.Name != nil {
		p.Name = strings.TrimSpace(*pt.Name)
	}
	if pt.Description != nil {
		p.Description = strings.TrimSpace(*pt.Description)
	}
	if pt.UsageLimit != nil {
		p.UsageLimit = *pt.UsageLimit
	}
	if pt.Status != nil {
		p.Status = *pt.Status
	}
	p.UpdatedBy = by
	p.touch()
	return nil
}

func (p *Promotion) SoftDelete(by string) error {
	if p.IsDeleted {
		return ErrAlreadyDeleted
	}
	if p.UsedCount > 0 {
		return ErrInUse
	}
	p.IsDeleted = true
	p.UpdatedBy = by
	p.touch()
	return nil
}

// Snapshot renders the fields recorded in promotion logs.
func (p *Promotion) Snapshot() map[string]any {
	return map[string]any{
		"code":          p.Code,
		"name":          p.Name,
		"description":   p.Description,
		"discountType":  string(p.DiscountType),
		"discountValue": p.DiscountValue,
		"minOrderValue": p.MinOrderValue,
		"maxDiscount":   p.MaxDiscount,
		"startDate":     p.StartDate,
		"endDate":       p.EndDate,
		"usageLimit":    p.UsageLimit,
		"usedCount":     p.UsedCount,
		"status":        string(p.Status),
		"isDeleted":     p.IsDeleted,
	}
}

func (p *Promotion) Clone() *Promotion {
	if p == nil {
		return nil
	}
	c := *p
	c.UsedByUsers = append([]string(nil), p.UsedByUsers...)
	return &c
}

func (p *Promotion) touch() { p.UpdatedAt = time.Now().UTC() }
