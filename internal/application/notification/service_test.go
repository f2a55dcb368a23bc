package notification

import (
	"context"
	"testing"
	"time"

	"github.com/Zhima-Mochi/readify/internal/application"
	"github.com/Zhima-Mochi/readify/internal/application/apptest"
	domain "github.com/Zhima-Mochi/readify/internal/domain/notification"
	domorder "github.com/Zhima-Mochi/readify/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/readify/internal/domain/outbox"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/id"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/pkg/objectid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *Service {
	store := memory.NewStore()
	return NewService(store.Notifications(), store.NotificationReads(), id.NewObjectIDGenerator(), observability.Nop())
}

func seed(t *testing.T, svc *Service, userID, title string) *domain.Notification {
	t.Helper()
	n, err := svc.CreateNotification(context.Background(), apptest.Admin, CreateInput{UserID: userID, Title: title, Content: title + " body", Type: domain.TypeSystem})
	require.NoError(t, err)
	return n
}

func TestCreateNotification(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.CreateNotification(ctx, apptest.Seller, CreateInput{Title: "x", Content: "y"})
	assert.ErrorIs(t, err, application.ErrForbidden)
	_, err = svc.CreateNotification(ctx, apptest.Admin, CreateInput{Title: " ", Content: "y"})
	assert.ErrorIs(t, err, domain.ErrTitleRequired)
	_, err = svc.CreateNotification(ctx, apptest.Admin, CreateInput{Title: "x", Content: "y", Type: "SPAM"})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	n, err := svc.CreateNotification(ctx, application.SystemActor, CreateInput{Title: "Maintenance", Content: "Tonight"})
	require.NoError(t, err)
	assert.True(t, n.Broadcast())
	assert.Equal(t, domain.TypeSystem, n.Type)
}

func TestReadState(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	me := apptest.Customer
	mine := seed(t, svc, me.UserID, "personal")
	everyone := seed(t, svc, "", "broadcast")
	seed(t, svc, objectid.New(), "someone else")

	count, err := svc.UnreadCount(ctx, me)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	v, err := svc.GetNotification(ctx, me, everyone.ID)
	require.NoError(t, err)
	assert.True(t, v.IsRead)
	require.NotNil(t, v.ReadAt)
	first := *v.ReadAt
	v, err = svc.GetNotification(ctx, me, everyone.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *v.ReadAt)

	read := true
	page, err := svc.ListNotifications(ctx, me, ListInput{IsRead: &read})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, everyone.ID, page.Items[0].ID)

	unread := false
	page, err = svc.ListNotifications(ctx, me, ListInput{IsRead: &unread})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.ID, page.Items[0].ID)
	assert.False(t, page.Items[0].IsRead)

	v, err = svc.SetReadState(ctx, me, everyone.ID, false)
	require.NoError(t, err)
	assert.False(t, v.IsRead)

	updated, err := svc.MarkAllAsRead(ctx, me)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)
	updated, err = svc.MarkAllAsRead(ctx, me)
	require.NoError(t, err)
	assert.Zero(t, updated)
	count, err = svc.UnreadCount(ctx, me)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteNotification(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	me := apptest.Customer
	mine := seed(t, svc, me.UserID, "personal")
	everyone := seed(t, svc, "", "broadcast")
	theirs := seed(t, svc, objectid.New(), "theirs")

	assert.ErrorIs(t, svc.DeleteNotification(ctx, me, everyone.ID), domain.ErrBroadcastDelete)
	assert.ErrorIs(t, svc.DeleteNotification(ctx, me, theirs.ID), domain.ErrNotFound)
	require.NoError(t, svc.DeleteNotification(ctx, me, mine.ID))

	_, err := svc.GetNotification(ctx, me, mine.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	page, err := svc.ListNotifications(ctx, me, ListInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Meta.Total)
}

type subscriber struct{ handlers map[string]domoutbox.Handler }

func (s *subscriber) Subscribe(name string, h domoutbox.Handler) {
	if s.handlers == nil {
		s.handlers = map[string]domoutbox.Handler{}
	}
	s.handlers[name] = h
}

func TestWorkerCreatesOrderNotifications(t *testing.T) {
	svc := newService()
	sub := &subscriber{}
	NewWorker(svc, sub, observability.Nop()).Start()
	require.Len(t, sub.handlers, 4)

	ctx := context.Background()
	orderID := objectid.New()
	events := []domoutbox.Event{
		domorder.CreatedEvent{OrderID: orderID, Code: "ORD20250001", UserID: apptest.Customer.UserID, FinalAmount: 90_000, OccurredAt: time.Now()},
		domorder.PaidEvent{OrderID: orderID, Code: "ORD20250001", UserID: apptest.Customer.UserID, Amount: 90_000},
		domorder.StatusChangedEvent{OrderID: orderID, Code: "ORD20250001", UserID: apptest.Customer.UserID, From: domorder.StatusConfirmed, To: domorder.StatusDelivered},
	}
	for _, e := range events {
		require.NoError(t, sub.handlers[e.EventName()](ctx, e))
	}

	page, err := svc.ListNotifications(ctx, apptest.Customer, ListInput{Type: domain.TypeOrder})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	for _, v := range page.Items {
		assert.Equal(t, orderID, v.RelatedOrderID)
		assert.Contains(t, v.Content, "ORD20250001")
	}
}
