// internal/app/store/storeutil/storeutil.go
package storeutil

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Paginate sanitizes a limit and 1-based page and returns the effective
// (limit, skip) pair for a Find.
func Paginate(limit, page int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// IsDup reports whether err is a MongoDB duplicate-key error (E11000).
// Stores use this to translate unique-index collisions into domain errors.
func IsDup(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}
