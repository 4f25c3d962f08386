package tool

import "github.com/google/uuid"

// GenerateUUIDV7 returns a time-ordered UUID. Used for trace ids and
// webhook log primary keys so they sort by arrival.
func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}
