// Package util provides small shared helpers.
package util

import (
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

// GenUUID generates a full UUID string. Used for series identifiers, where
// global uniqueness across companies matters more than brevity.
func GenUUID() string {
	return uuid.New().String()
}

// GenShortUUID generates a short UUID string. Used for instance identifiers.
func GenShortUUID() string {
	return shortuuid.New()
}
