package memory

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain/notification"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

type NotificationRepository struct{ s *Store }

func (s *Store) Notifications() *NotificationRepository { return &NotificationRepository{s: s} }

func (r *NotificationRepository) Insert(ctx context.Context, n *notification.Notification) error {
	defer r.s.lock(ctx)()
	r.s.notifications.put(n.ID, n)
	return nil
}

func (r *NotificationRepository) Get(ctx context.Context, id string) (*notification.Notification, error) {
	defer r.s.rlock(ctx)()
	n, ok := r.s.notifications.get(id)
	if !ok {
		return nil, notification.ErrNotFound
	}
	return n, nil
}

func (r *NotificationRepository) Update(ctx context.Context, n *notification.Notification) error {
	defer r.s.lock(ctx)()
	if !r.s.notifications.has(n.ID) {
		return notification.ErrNotFound
	}
	r.s.notifications.put(n.ID, n)
	return nil
}

func (r *NotificationRepository) List(ctx context.Context, f notification.ListFilter) ([]*notification.Notification, int64, error) {
	var include, exclude map[string]struct{}
	if f.IncludeIDs != nil {
		include = inSet(f.IncludeIDs)
	}
	if f.ExcludeIDs != nil {
		exclude = inSet(f.ExcludeIDs)
	}
	unlock := r.s.rlock(ctx)
	rows := r.s.notifications.find(func(n *notification.Notification) bool {
		if !n.VisibleTo(f.UserID) {
			return false
		}
		if f.Type != "" && n.Type != f.Type {
			return false
		}
		if include != nil {
			if _, ok := include[n.ID]; !ok {
				return false
			}
		}
		if exclude != nil {
			if _, ok := exclude[n.ID]; ok {
				return false
			}
		}
		return true
	})
	unlock()

	sortBy(rows, func(n *notification.Notification) string { return n.ID }, func(a, b *notification.Notification) int {
		return -a.CreatedAt.Compare(b.CreatedAt)
	})
	return paging.Window(rows, f.Paging), int64(len(rows)), nil
}

func (r *NotificationRepository) VisibleIDs(ctx context.Context, userID string) ([]string, error) {
	defer r.s.rlock(ctx)()
	rows := r.s.notifications.find(func(n *notification.Notification) bool { return n.VisibleTo(userID) })
	ids := make([]string, 0, len(rows))
	for _, n := range rows {
		ids = append(ids, n.ID)
	}
	return ids, nil
}

type NotificationReadRepository struct{ s *Store }

func (s *Store) NotificationReads() *NotificationReadRepository {
	return &NotificationReadRepository{s: s}
}

func readKey(notificationID, userID string) string { return notificationID + "|" + userID }

func (r *NotificationReadRepository) Mark(ctx context.Context, rd notification.Read) (bool, error) {
	defer r.s.lock(ctx)()
	key := readKey(rd.NotificationID, rd.UserID)
	if r.s.reads.has(key) {
		return false, nil
	}
	r.s.reads.put(key, &rd)
	return true, nil
}

func (r *NotificationReadRepository) Unmark(ctx context.Context, notificationID, userID string) error {
	defer r.s.lock(ctx)()
	r.s.reads.remove(readKey(notificationID, userID))
	return nil
}

func (r *NotificationReadRepository) ReadAt(ctx context.Context, userID string, ids []string) (map[string]time.Time, error) {
	defer r.s.rlock(ctx)()
	out := make(map[string]time.Time, len(ids))
	for _, id := range ids {
		if rd, ok := r.s.reads.get(readKey(id, userID)); ok {
			out[id] = rd.ReadAt
		}
	}
	return out, nil
}

func (r *NotificationReadRepository) ReadIDs(ctx context.Context, userID string) ([]string, error) {
	defer r.s.rlock(ctx)()
	rows := r.s.reads.find(func(rd *notification.Read) bool { return rd.UserID == userID })
	ids := make([]string, 0, len(rows))
	for _, rd := range rows {
		ids = append(ids, rd.NotificationID)
	}
	return ids, nil
}
