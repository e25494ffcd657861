package store

import "github.com/google/uuid"

var uuidZero uuid.UUID

func newUUID() uuid.UUID {
	return uuid.New()
}
