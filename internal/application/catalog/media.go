package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/Zhima-Mochi/readify/internal/application"
	domaccount "github.com/Zhima-Mochi/readify/internal/domain/account"
	"github.com/Zhima-Mochi/readify/internal/domain/media"
)

type RegisterMediaInput struct {
	URL          string
	PublicID     string
	Type         media.Type
	Folder       media.Folder
	OriginalName string
	MimeType     string
	Size         int64
}

// RegisterMedia records an uploaded asset as TEMP until something attaches it.
func (s *Service) RegisterMedia(ctx context.Context, actor application.Actor, in RegisterMediaInput) (_ *media.Media, err error) {
	ctx, call := s.inst.Start(ctx, "catalog.register_media", "RegisterMedia")
	defer call.End(&err)

	if actor.UserID == "" {
		return nil, application.ErrUnauthorized
	}
	url, publicID := strings.TrimSpace(in.URL), strings.TrimSpace(in.PublicID)
	if url == "" || publicID == "" {
		return nil, application.NewValidation("url and publicId are required")
	}
	if in.Type == "" {
		in.Type = media.TypeImage
	}
	if !in.Type.Valid() {
		return nil, media.ErrInvalidType
	}
	if in.Folder == "" {
		in.Folder = media.FolderOther
	}
	if !in.Folder.Valid() {
		return nil, media.ErrInvalidFolder
	}
	now := s.clock()
	m := &media.Media{
		ID:           s.ids.NewID(),
		URL:          url,
		PublicID:     publicID,
		Type:         in.Type,
		Size:         in.Size,
		Status:       media.StatusTemp,
		UploadedBy:   actor.UserID,
		Folder:       in.Folder,
		OriginalName: strings.TrimSpace(in.OriginalName),
		MimeType:     strings.TrimSpace(in.MimeType),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = s.media.Insert(ctx, m); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return m, nil
}

// AttachAvatar makes one of the caller's TEMP uploads their avatar.
func (s *Service) AttachAvatar(ctx context.Context, actor application.Actor, mediaID string) (_ *domaccount.Account, err error) {
	ctx, call := s.inst.Start(ctx, "catalog.attach_avatar", "AttachAvatar")
	defer call.End(&err)

	if actor.UserID == "" {
		return nil, application.ErrUnauthorized
	}
	var acc *domaccount.Account
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.media.Get(ctx, mediaID)
		if err != nil {
			return application.WrapRepositoryError(err)
		}
		if err := m.EnsureAttachable(actor.UserID); err != nil {
			return err
		}
		acc, err = s.accounts.Get(ctx, actor.UserID)
		if err != nil {
			return application.WrapRepositoryError(err)
		}
		if acc.IsDeleted {
			return domaccount.ErrDeleted
		}
		m.Attach(media.ModelAccount, acc.ID)
		if err := s.media.Update(ctx, m); err != nil {
			return application.WrapRepositoryError(err)
		}
		acc.SetAvatar(m.URL)
		return application.WrapRepositoryError(s.accounts.Update(ctx, acc))
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *Service) RemoveMedia(ctx context.Context, actor application.Actor, mediaID string) (err error) {
	ctx, call := s.inst.Start(ctx, "catalog.remove_media", "RemoveMedia")
	defer call.End(&err)

	m, err := s.media.Get(ctx, mediaID)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	if m.UploadedBy != actor.UserID {
		return media.ErrNotOwner
	}
	if m.Status == media.StatusAttached {
		return media.ErrAttachedRemoval
	}
	return application.WrapRepositoryError(s.media.Delete(ctx, m.ID))
}

// CleanupTempMedia deletes TEMP media created more than olderThan ago.
func (s *Service) CleanupTempMedia(ctx context.Context, olderThan time.Duration) (_ int64, err error) {
	ctx, call := s.inst.Start(ctx, "catalog.cleanup_temp_media", "CleanupTempMedia")
	defer call.End(&err)

	n, err := s.media.DeleteTempBefore(ctx, s.clock().Add(-olderThan))
	if err != nil {
		return 0, application.WrapRepositoryError(err)
	}
	call.Field("deleted", n)
	return n, nil
}
