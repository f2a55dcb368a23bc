package promotion

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain"
)

var ErrLogNotFound = domain.NewError(domain.ErrNotFound, "PROMOTION_LOG_NOT_FOUND", "promotion: log entry not found")

type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionApply  Action = "APPLY"
	ActionCancel Action = "CANCEL"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionApply, ActionCancel:
		return true
	}
	return false
}

// Change is a single field diff recorded on UPDATE.
type Change struct {
	From any
	To   any
}

// Log is the audit entry for promotion lifecycle and redemption.
type Log struct {
	ID            string
	PromotionID   string
	PromotionCode string
	PromotionName string
	Action        Action
	PerformedBy   string
	OldData       map[string]any
	NewData       map[string]any
	Changes       map[string]Change
	Note          string
	IPAddress     string
	UserAgent     string
	CreatedAt     time.Time
}

// RequestMeta is the client context attached to log entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

func NewLog(id string, p *Promotion, action Action, by string, meta RequestMeta) *Log {
	return &Log{
		ID:            id,
		PromotionID:   p.ID,
		PromotionCode: p.Code,
		PromotionName: p.Name,
		Action:        action,
		PerformedBy:   by,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
		CreatedAt:     time.Now().UTC(),
	}
}

// Diff lists the keys whose values differ between two snapshots.
func Diff(before, after map[string]any) map[string]Change {
	keys := make([]string, 0, len(after))
	for k := range after {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]Change)
	for _, k := range keys {
		if !reflect.DeepEqual(before[k], after[k]) {
			out[k] = Change{From: before[k], To: after[k]}
		}
	}
	return out
}

// ApplyNote renders the note stored on APPLY entries.
func ApplyNote(orderCode string, discount int64) string {
	return fmt.Sprintf("Applied to order %s (discount %d)", orderCode, discount)
}

// AppliedEvent is emitted after a checkout commits with a redeemed promotion.
type AppliedEvent struct {
	PromotionID    string
	Code           string
	UserID         string
	OrderID        string
	OrderCode      string
	DiscountAmount int64
	OccurredAt     time.Time
}

func (AppliedEvent) EventName() string { return "promotion.applied" }
