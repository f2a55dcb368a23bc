package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Zhima-Mochi/readify/internal/domain/account"
)

type accountDoc struct {
	ID          string         `bson:"_id"`
	Email       string         `bson:"email"`
	Password    string         `bson:"password"`
	FirstName   string         `bson:"firstName"`
	LastName    string         `bson:"lastName"`
	Phone       string         `bson:"phone,omitempty"`
	AvatarURL   string         `bson:"avatarUrl,omitempty"`
	Address     string         `bson:"address,omitempty"`
	DateOfBirth *time.Time     `bson:"dateOfBirth,omitempty"`
	Sex         account.Sex    `bson:"sex"`
	Role        account.Role   `bson:"role"`
	Status      account.Status `bson:"status"`
	IsDeleted   bool           `bson:"isDeleted"`
	LastLoginAt *time.Time     `bson:"lastLoginAt,omitempty"`
	CreatedAt   time.Time      `bson:"createdAt"`
	UpdatedAt   time.Time      `bson:"updatedAt"`
}

func toAccountDoc(a *account.Account) accountDoc {
	return accountDoc{
		ID: a.ID, Email: a.Email, Password: a.PasswordHash,
		FirstName: a.FirstName, LastName: a.LastName, Phone: a.Phone, AvatarURL: a.AvatarURL, Address: a.Address,
		DateOfBirth: a.DateOfBirth, Sex: a.Sex, Role: a.Role, Status: a.Status, IsDeleted: a.IsDeleted,
		LastLoginAt: a.LastLoginAt, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}

func (d *accountDoc) domain() *account.Account {
	return &account.Account{
		ID: d.ID, Email: d.Email, PasswordHash: d.Password,
		FirstName: d.FirstName, LastName: d.LastName, Phone: d.Phone, AvatarURL: d.AvatarURL, Address: d.Address,
		DateOfBirth: d.DateOfBirth, Sex: d.Sex, Role: d.Role, Status: d.Status, IsDeleted: d.IsDeleted,
		LastLoginAt: d.LastLoginAt, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type AccountRepository struct{ c *mongo.Collection }

func (s *Store) Accounts() *AccountRepository { return &AccountRepository{c: s.col(colAccounts)} }

func (r *AccountRepository) Insert(ctx context.Context, a *account.Account) error {
	return insert(ctx, r.c, toAccountDoc(a), account.ErrEmailExists)
}

func (r *AccountRepository) Get(ctx context.Context, id string) (*account.Account, error) {
	return findOne(ctx, r.c, bson.M{"_id": id}, account.ErrNotFound, (*accountDoc).domain)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	return findOne(ctx, r.c, bson.M{"email": email}, account.ErrNotFound, (*accountDoc).domain)
}

func (r *AccountRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	f := bson.M{"email": email}
	if excludeID != "" {
		f["_id"] = bson.M{"$ne": excludeID}
	}
	return exists(ctx, r.c, f)
}

func (r *AccountRepository) Update(ctx context.Context, a *account.Account) error {
	return replace(ctx, r.c, a.ID, toAccountDoc(a), account.ErrNotFound)
}

func (r *AccountRepository) List(ctx context.Context, f account.ListFilter) ([]*account.Account, int64, error) {
	skip, limit := pageOf(f.Paging)
	return findPage(ctx, r.c, accountFilter(f), sortSpec(f.Sort.Field, f.Sort.Desc), skip, limit, (*accountDoc).domain)
}

func (r *AccountRepository) UpdateStatusWhere(ctx context.Context, from, to account.Status) (int64, error) {
	res, err := r.c.UpdateMany(ctx, bson.M{"status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return 0, fmt.Errorf("mongo: update accounts: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *AccountRepository) FindPlaintextPasswords(ctx context.Context) ([]*account.Account, error) {
	f := bson.M{
		"isDeleted": false,
		"password":  bson.M{"$not": primitive.Regex{Pattern: `^\$2[ab]\$`}},
	}
	return findAll(ctx, r.c, f, options.Find(), (*accountDoc).domain)
}

type pendingDoc struct {
	Email     string          `bson:"_id"`
	Password  string          `bson:"password"`
	Profile   account.Profile `bson:"profile"`
	ExpiresAt time.Time       `bson:"expiresAt"`
	CreatedAt time.Time       `bson:"createdAt"`
}

func (d *pendingDoc) domain() *account.PendingRegistration {
	return &account.PendingRegistration{
		Email: d.Email, PasswordHash: d.Password, Profile: d.Profile, ExpiresAt: d.ExpiresAt, CreatedAt: d.CreatedAt,
	}
}

type PendingRepository struct{ c *mongo.Collection }

func (s *Store) PendingRegistrations() *PendingRepository { return &PendingRepository{c: s.col(colPending)} }

func (r *PendingRepository) Upsert(ctx context.Context, p *account.PendingRegistration) error {
	doc := pendingDoc{Email: p.Email, Password: p.PasswordHash, Profile: p.Profile, ExpiresAt: p.ExpiresAt, CreatedAt: p.CreatedAt}
	_, err := r.c.ReplaceOne(ctx, bson.M{"_id": p.Email}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: upsert pending registration: %w", err)
	}
	return nil
}

func (r *PendingRepository) Get(ctx context.Context, email string) (*account.PendingRegistration, error) {
	return findOne(ctx, r.c, bson.M{"_id": email}, account.ErrRegistrationGone, (*pendingDoc).domain)
}

func (r *PendingRepository) Delete(ctx context.Context, email string) error {
	if _, err := r.c.DeleteOne(ctx, bson.M{"_id": email}); err != nil {
		return fmt.Errorf("mongo: delete pending registration: %w", err)
	}
	return nil
}
