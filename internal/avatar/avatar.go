// Package avatar provides the deterministic fallback avatar used when a
// candidate profile has no avatar of its own, so recommendation payloads
// always carry a complete shape.
package avatar

import "fmt"

const urlTemplate = "https://api.dicebear.com/7.x/avataaars/svg?seed=user-%d"

// Generator produces a stable avatar URL for a user id. The production
// implementation lives in the media service; URLFor is the local default.
type Generator func(userID uint64) string

// URLFor returns the same URL for the same user id on every call.
func URLFor(userID uint64) string {
	return fmt.Sprintf(urlTemplate, userID)
}
