package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Zhima-Mochi/readify/internal/domain/otp"
)

type otpDoc struct {
	Email        string      `bson:"email"`
	Purpose      otp.Purpose `bson:"purpose"`
	CodeHash     string      `bson:"otpHash"`
	ExpiresAt    time.Time   `bson:"expiresAt"`
	LastSentAt   time.Time   `bson:"lastSentAt"`
	Attempts     int         `bson:"attempts"`
	ResendCount  int         `bson:"resendCount"`
	BlockedUntil *time.Time  `bson:"blockedUntil,omitempty"`
	CreatedAt    time.Time   `bson:"createdAt"`
}

func toOTPDoc(r *otp.Record) otpDoc {
	return otpDoc{
		Email: r.Email, Purpose: r.Purpose, CodeHash: r.CodeHash, ExpiresAt: r.ExpiresAt, LastSentAt: r.LastSentAt,
		Attempts: r.Attempts, ResendCount: r.ResendCount, BlockedUntil: r.BlockedUntil, CreatedAt: r.CreatedAt,
	}
}

func (d *otpDoc) domain() *otp.Record {
	return &otp.Record{
		Email: d.Email, Purpose: d.Purpose, CodeHash: d.CodeHash, ExpiresAt: d.ExpiresAt, LastSentAt: d.LastSentAt,
		Attempts: d.Attempts, ResendCount: d.ResendCount, BlockedUntil: d.BlockedUntil, CreatedAt: d.CreatedAt,
	}
}

func otpKey(email string, purpose otp.Purpose) bson.M {
	return bson.M{"email": email, "purpose": purpose}
}

type OTPRepository struct{ c *mongo.Collection }

func (s *Store) OTPs() *OTPRepository { return &OTPRepository{c: s.col(colOTPs)} }

func (r *OTPRepository) Get(ctx context.Context, email string, purpose otp.Purpose) (*otp.Record, error) {
	return findOne(ctx, r.c, otpKey(email, purpose), otp.ErrNotFound, (*otpDoc).domain)
}

func (r *OTPRepository) Insert(ctx context.Context, rec *otp.Record) error {
	return insert(ctx, r.c, toOTPDoc(rec), otp.ErrAlreadySent)
}

func (r *OTPRepository) Save(ctx context.Context, rec *otp.Record) error {
	_, err := r.c.ReplaceOne(ctx, otpKey(rec.Email, rec.Purpose), toOTPDoc(rec), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: save otp: %w", err)
	}
	return nil
}

func (r *OTPRepository) Delete(ctx context.Context, email string, purpose otp.Purpose) error {
	if _, err := r.c.DeleteOne(ctx, otpKey(email, purpose)); err != nil {
		return fmt.Errorf("mongo: delete otp: %w", err)
	}
	return nil
}

func (r *OTPRepository) IncAttempts(ctx context.Context, email string, purpose otp.Purpose) error {
	res, err := r.c.UpdateOne(ctx, otpKey(email, purpose), bson.M{"$inc": bson.M{"attempts": 1}})
	if err != nil {
		return fmt.Errorf("mongo: inc otp attempts: %w", err)
	}
	if res.MatchedCount == 0 {
		return otp.ErrNotFound
	}
	return nil
}
