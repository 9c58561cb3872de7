// Package chat defines the message shapes shared by the live conversation,
// the durable store and the snapshot.
package chat

// Role enumerates the supported turn roles.
type Role string

const (
	// RoleUser is a turn submitted by the user.
	RoleUser Role = "user"
	// RoleAssistant is a completion returned by the provider.
	RoleAssistant Role = "assistant"
	// RoleError marks a failed turn. Error turns are shown transiently by the
	// UI layer and are excluded from live history and from both persistence
	// tiers.
	RoleError Role = "error"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleError:
		return true
	}
	return false
}

// Turn is one element of the live conversation as shown to the user.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
