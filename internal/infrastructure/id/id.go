// Package id provides the identifier generators used by use cases.
package id

import (
	"github.com/Zhima-Mochi/readify/internal/pkg/objectid"
	"github.com/google/uuid"
)

// ObjectIDGenerator issues Mongo ObjectID hex strings for entity ids.
type ObjectIDGenerator struct{}

func NewObjectIDGenerator() ObjectIDGenerator { return ObjectIDGenerator{} }

func (ObjectIDGenerator) NewID() string { return objectid.New() }

// UUIDGenerator issues random UUIDs for token and event ids.
type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) NewID() string { return uuid.NewString() }
