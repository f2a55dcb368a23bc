// Package objectid hides the Mongo ObjectID type behind hex strings so domain packages stay driver free.
package objectid

import "go.mongodb.org/mongo-driver/bson/primitive"

func New() string {
	return primitive.NewObjectID().Hex()
}

func Valid(id string) bool {
	return primitive.IsValidObjectID(id)
}

// AllValid reports whether every id is a valid ObjectID hex string.
func AllValid(ids []string) bool {
	for _, id := range ids {
		if !Valid(id) {
			return false
		}
	}
	return true
}

// Unique returns ids without duplicates, keeping first occurrence order.
func Unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
