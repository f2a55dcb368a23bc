package media

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain"
)

var (
	ErrNotFound        = domain.NewError(domain.ErrNotFound, "MEDIA_NOT_FOUND", "media: not found")
	ErrPublicIDExists  = domain.NewError(domain.ErrConflict, "MEDIA_PUBLIC_ID_EXISTS", "media: publicId already registered")
	ErrNotTemp         = domain.NewError(domain.ErrInvalid, "MEDIA_NOT_TEMP", "media: media is already attached")
	ErrNotOwner        = domain.NewError(domain.ErrForbidden, "MEDIA_NOT_OWNER", "media: media belongs to another user")
	ErrMissing         = domain.NewError(domain.ErrInvalid, "MEDIA_MISSING", "media: one or more media items do not exist")
	ErrInvalidType     = domain.NewError(domain.ErrInvalid, "MEDIA_TYPE_INVALID", "media: invalid type")
	ErrInvalidFolder   = domain.NewError(domain.ErrInvalid, "MEDIA_FOLDER_INVALID", "media: invalid folder")
	ErrAttachedRemoval = domain.NewError(domain.ErrInvalid, "MEDIA_ATTACHED", "media: attached media cannot be removed")
)

type Type string

const (
	TypeImage Type = "image"
	TypeVideo Type = "video"
	TypeFile  Type = "file"
)

func (t Type) Valid() bool { return t == TypeImage || t == TypeVideo || t == TypeFile }

type Status string

const (
	StatusTemp     Status = "TEMP"
	StatusAttached Status = "ATTACHED"
)

type Folder string

const (
	FolderBook     Folder = "book"
	FolderBanner   Folder = "banner"
	FolderAccount  Folder = "account"
	FolderCategory Folder = "category"
	FolderOther    Folder = "other"
)

func (f Folder) Valid() bool {
	switch f {
	case FolderBook, FolderBanner, FolderAccount, FolderCategory, FolderOther:
		return true
	}
	return false
}

// Models that media can attach to.
const (
	ModelBook    = "Book"
	ModelAccount = "Account"
)

type Attachment struct {
	Model string
	ID    string
}

type Media struct {
	ID           string
	URL          string
	PublicID     string
	Type         Type
	Size         int64
	Status       Status
	UploadedBy   string
	Folder       Folder
	AttachedTo   *Attachment
	OriginalName string
	MimeType     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EnsureAttachable requires TEMP status and, when owner is set, ownership.
func (m *Media) EnsureAttachable(owner string) error {
	if m.Status != StatusTemp {
		return ErrNotTemp
	}
	if owner != "" && m.UploadedBy != owner {
		return ErrNotOwner
	}
	return nil
}

func (m *Media) Attach(model, id string) {
	m.Status = StatusAttached
	m.AttachedTo = &Attachment{Model: model, ID: id}
	m.UpdatedAt = time.Now().UTC()
}

func (m *Media) Release() {
	m.Status = StatusTemp
	m.AttachedTo = nil
	m.UpdatedAt = time.Now().UTC()
}

func (m *Media) Clone() *Media {
	if m == nil {
		return nil
	}
	c := *m
	if m.AttachedTo != nil {
		a := *m.AttachedTo
		c.AttachedTo = &a
	}
	return &c
}

type Repository interface {
	Insert(ctx context.Context, m *Media) error
	Get(ctx context.Context, id string) (*Media, error)
	GetMany(ctx context.Context, ids []string) ([]*Media, error)
	Update(ctx context.Context, m *Media) error
	Delete(ctx context.Context, id string) error
	DeleteTempBefore(ctx context.Context, before time.Time) (int64, error)
}
