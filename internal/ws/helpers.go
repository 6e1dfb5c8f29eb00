package ws

import "github.com/google/uuid"

// newConnID tags a socket for the lifecycle events it emits.
func newConnID() string {
	return uuid.NewString()
}
