package notification

import (
	"context"
	"strings"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

var (
	ErrNotFound        = domain.NewError(domain.ErrNotFound, "NOTIFICATION_NOT_FOUND", "notification: not found")
	ErrTitleRequired   = domain.NewError(domain.ErrInvalid, "NOTIFICATION_TITLE_REQUIRED", "notification: title is required")
	ErrContentRequired = domain.NewError(domain.ErrInvalid, "NOTIFICATION_CONTENT_REQUIRED", "notification: content is required")
	ErrInvalidType     = domain.NewError(domain.ErrInvalid, "NOTIFICATION_TYPE_INVALID", "notification: invalid type")
	ErrBroadcastDelete = domain.NewError(domain.ErrForbidden, "NOTIFICATION_BROADCAST", "notification: broadcast notifications cannot be deleted by users")
)

type Type string

const (
	TypeOrder     Type = "ORDER"
	TypePromotion Type = "PROMOTION"
	TypeSystem    Type = "SYSTEM"
	TypeAccount   Type = "ACCOUNT"
	TypeOther     Type = "OTHER"
)

func (t Type) Valid() bool {
	switch t {
	case TypeOrder, TypePromotion, TypeSystem, TypeAccount, TypeOther:
		return true
	}
	return false
}

// Notification targets one user, or everyone when UserID is empty.
type Notification struct {
	ID                 string
	UserID             string
	Title              string
	Content            string
	Type               Type
	RelatedOrderID     string
	RelatedPromotionID string
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func New(id, userID, title, content string, typ Type) (*Notification, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if content == "" {
		return nil, ErrContentRequired
	}
	if typ == "" {
		typ = TypeSystem
	}
	if !typ.Valid() {
		return nil, ErrInvalidType
	}
	now := time.Now().UTC()
	return &Notification{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Content:   content,
		Type:      typ,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (n *Notification) Broadcast() bool { return n.UserID == "" }

// VisibleTo reports whether userID may read the notification.
func (n *Notification) VisibleTo(userID string) bool {
	return n.IsActive && (n.Broadcast() || n.UserID == userID)
}

func (n *Notification) Deactivate() {
	n.IsActive = false
	n.UpdatedAt = time.Now().UTC()
}

func (n *Notification) Clone() *Notification {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

// Read marks a notification as read by a user.
type Read struct {
	NotificationID string
	UserID         string
	ReadAt         time.Time
}

// View is a notification together with the caller's read state.
type View struct {
	*Notification
	IsRead bool
	ReadAt *time.Time
}

type ListFilter struct {
	// UserID selects personal plus broadcast notifications.
	UserID string
	Type   Type
	// IncludeIDs and ExcludeIDs narrow by id when non-nil.
	IncludeIDs []string
	ExcludeIDs []string
	Paging     paging.Params
}

type Repository interface {
	Insert(ctx context.Context, n *Notification) error
	Get(ctx context.Context, id string) (*Notification, error)
	Update(ctx context.Context, n *Notification) error
	// List returns active notifications visible to the user, newest first.
	List(ctx context.Context, f ListFilter) ([]*Notification, int64, error)
	VisibleIDs(ctx context.Context, userID string) ([]string, error)
}

type ReadRepository interface {
	// Mark upserts the read record and reports whether it was newly created.
	Mark(ctx context.Context, r Read) (bool, error)
	Unmark(ctx context.Context, notificationID, userID string) error
	// ReadAt returns read times for the given notifications.
	ReadAt(ctx context.Context, userID string, ids []string) (map[string]time.Time, error)
	ReadIDs(ctx context.Context, userID string) ([]string, error)
}
