package app

import "github.com/google/uuid"

// newID returns a time-ordered UUIDv7 so primary keys index in creation order.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
