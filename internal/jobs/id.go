package jobs

import "github.com/google/uuid"

// GenerateID creates a new random run ID with the given prefix.
// The prefix should include a trailing dash, e.g. "views-", "mcp-".
func GenerateID(prefix string) string {
	return prefix + uuid.NewString()
}
