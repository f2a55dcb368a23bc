// Package notification delivers in-app messages and tracks who has read them.
package notification

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/readify/internal/application"
	domain "github.com/Zhima-Mochi/readify/internal/domain/notification"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/pkg/objectid"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"

	"go.opentelemetry.io/otel/attribute"
)

const notificationService = "notification-service"

type Service struct {
	notifications domain.Repository
	reads         domain.ReadRepository
	ids           application.IDGenerator
	clock         application.Clock
	inst          *application.Instrumentation
}

func NewService(notifications domain.Repository, reads domain.ReadRepository, ids application.IDGenerator, tel observability.Observability) *Service {
	return &Service{
		notifications: notifications,
		reads:         reads,
		ids:           ids,
		clock:         application.SystemClock,
		inst:          application.NewInstrumentation(notificationService, tel),
	}
}

func (s *Service) WithClock(c application.Clock) *Service {
	s.clock = c
	return s
}

// CreateInput targets UserID, or everyone when UserID is empty.
type CreateInput struct {
	UserID             string
	Title              string
	Content            string
	Type               domain.Type
	RelatedOrderID     string
	RelatedPromotionID string
}

// CreateNotification is for admins and for internal event handlers running as the system actor.
func (s *Service) CreateNotification(ctx context.Context, actor application.Actor, in CreateInput) (_ *domain.Notification, err error) {
	ctx, call := s.inst.Start(ctx, "notification.create", "CreateNotification",
		attribute.String("notification.type", string(in.Type)),
		attribute.Bool("notification.broadcast", in.UserID == ""),
	)
	defer call.End(&err)

	if !actor.IsAdmin() {
		return nil, application.ErrForbidden
	}
	if in.UserID != "" && !objectid.Valid(in.UserID) {
		return nil, application.NewValidation("invalid userId")
	}
	n, err := domain.New(s.ids.NewID(), in.UserID, in.Title, in.Content, in.Type)
	if err != nil {
		return nil, err
	}
	n.RelatedOrderID = in.RelatedOrderID
	n.RelatedPromotionID = in.RelatedPromotionID
	if err = s.notifications.Insert(ctx, n); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	call.Field("notification_id", n.ID)
	return n, nil
}

type ListInput struct {
	application.ListQuery
	Type   domain.Type
	IsRead *bool
}

// ListNotifications returns the caller's personal and broadcast notifications, newest first,
// each with the caller's read state.
func (s *Service) ListNotifications(ctx context.Context, actor application.Actor, in ListInput) (_ paging.Result[domain.View], err error) {
	ctx, call := s.inst.Start(ctx, "notification.list", "ListNotifications", attribute.String("user.id", actor.UserID))
	defer call.End(&err)

	if actor.UserID == "" {
		return paging.Result[domain.View]{}, application.ErrUnauthorized
	}
	if in.Type != "" && !in.Type.Valid() {
		return paging.Result[domain.View]{}, domain.ErrInvalidType
	}
	p := in.Params()
	f := domain.ListFilter{UserID: actor.UserID, Type: in.Type, Paging: p}
	if in.IsRead != nil {
		readIDs, err := s.reads.ReadIDs(ctx, actor.UserID)
		if err != nil {
			return paging.Result[domain.View]{}, application.WrapRepositoryError(err)
		}
		if *in.IsRead {
			f.IncludeIDs = readIDs
		} else {
			f.ExcludeIDs = readIDs
		}
	}
	rows, total, err := s.notifications.List(ctx, f)
	if err != nil {
		return paging.Result[domain.View]{}, application.WrapRepositoryError(err)
	}
	ids := make([]string, 0, len(rows))
	for _, n := range rows {
		ids = append(ids, n.ID)
	}
	readAt, err := s.reads.ReadAt(ctx, actor.UserID, ids)
	if err != nil {
		return paging.Result[domain.View]{}, application.WrapRepositoryError(err)
	}
	views := make([]domain.View, 0, len(rows))
	for _, n := range rows {
		views = append(views, view(n, readAt))
	}
	return paging.NewResult(views, p, total), nil
}

// GetNotification returns one notification and marks it read.
func (s *Service) GetNotification(ctx context.Context, actor application.Actor, id string) (_ domain.View, err error) {
	ctx, call := s.inst.Start(ctx, "notification.get", "GetNotification", attribute.String("notification.id", id))
	defer call.End(&err)

	n, err := s.visible(ctx, actor, id)
	if err != nil {
		return domain.View{}, err
	}
	if _, err = s.reads.Mark(ctx, domain.Read{NotificationID: n.ID, UserID: actor.UserID, ReadAt: s.clock()}); err != nil {
		return domain.View{}, application.WrapRepositoryError(err)
	}
	readAt, err := s.reads.ReadAt(ctx, actor.UserID, []string{n.ID})
	if err != nil {
		return domain.View{}, application.WrapRepositoryError(err)
	}
	return view(n, readAt), nil
}

func (s *Service) SetReadState(ctx context.Context, actor application.Actor, id string, isRead bool) (_ domain.View, err error) {
	ctx, call := s.inst.Start(ctx, "notification.set_read", "SetReadState",
		attribute.String("notification.id", id),
		attribute.Bool("notification.read", isRead),
	)
	defer call.End(&err)

	n, err := s.visible(ctx, actor, id)
	if err != nil {
		return domain.View{}, err
	}
	if !isRead {
		if err = s.reads.Unmark(ctx, n.ID, actor.UserID); err != nil {
			return domain.View{}, application.WrapRepositoryError(err)
		}
		return domain.View{Notification: n}, nil
	}
	now := s.clock()
	if _, err = s.reads.Mark(ctx, domain.Read{NotificationID: n.ID, UserID: actor.UserID, ReadAt: now}); err != nil {
		return domain.View{}, application.WrapRepositoryError(err)
	}
	readAt, err := s.reads.ReadAt(ctx, actor.UserID, []string{n.ID})
	if err != nil {
		return domain.View{}, application.WrapRepositoryError(err)
	}
	return view(n, readAt), nil
}

// DeleteNotification hides one of the caller's personal notifications. Broadcasts stay.
func (s *Service) DeleteNotification(ctx context.Context, actor application.Actor, id string) (err error) {
	ctx, call := s.inst.Start(ctx, "notification.delete", "DeleteNotification", attribute.String("notification.id", id))
	defer call.End(&err)

	n, err := s.visible(ctx, actor, id)
	if err != nil {
		return err
	}
	if n.Broadcast() {
		return domain.ErrBroadcastDelete
	}
	n.Deactivate()
	return application.WrapRepositoryError(s.notifications.Update(ctx, n))
}

// MarkAllAsRead returns how many notifications were newly marked.
func (s *Service) MarkAllAsRead(ctx context.Context, actor application.Actor) (_ int64, err error) {
	ctx, call := s.inst.Start(ctx, "notification.mark_all_read", "MarkAllAsRead", attribute.String("user.id", actor.UserID))
	defer call.End(&err)

	if actor.UserID == "" {
		return 0, application.ErrUnauthorized
	}
	ids, err := s.notifications.VisibleIDs(ctx, actor.UserID)
	if err != nil {
		return 0, application.WrapRepositoryError(err)
	}
	now := s.clock()
	var updated int64
	for _, nid := range ids {
		created, err := s.reads.Mark(ctx, domain.Read{NotificationID: nid, UserID: actor.UserID, ReadAt: now})
		if err != nil {
			return updated, application.WrapRepositoryError(err)
		}
		if created {
			updated++
		}
	}
	call.Field("updated_count", updated)
	return updated, nil
}

func (s *Service) UnreadCount(ctx context.Context, actor application.Actor) (_ int64, err error) {
	ctx, call := s.inst.Start(ctx, "notification.unread_count", "UnreadCount", attribute.String("user.id", actor.UserID))
	defer call.End(&err)

	if actor.UserID == "" {
		return 0, application.ErrUnauthorized
	}
	visible, err := s.notifications.VisibleIDs(ctx, actor.UserID)
	if err != nil {
		return 0, application.WrapRepositoryError(err)
	}
	readAt, err := s.reads.ReadAt(ctx, actor.UserID, visible)
	if err != nil {
		return 0, application.WrapRepositoryError(err)
	}
	return int64(len(visible) - len(readAt)), nil
}

func (s *Service) visible(ctx context.Context, actor application.Actor, id string) (*domain.Notification, error) {
	if actor.UserID == "" {
		return nil, application.ErrUnauthorized
	}
	if !objectid.Valid(id) {
		return nil, application.NewValidation("invalid notification id")
	}
	n, err := s.notifications.Get(ctx, id)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if !n.VisibleTo(actor.UserID) {
		return nil, domain.ErrNotFound
	}
	return n, nil
}

func view(n *domain.Notification, readAt map[string]time.Time) domain.View {
	v := domain.View{Notification: n}
	if at, ok := readAt[n.ID]; ok {
		v.IsRead = true
		v.ReadAt = &at
	}
	return v
}
