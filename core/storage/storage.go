// Package storage is the durable client-side key-value store the
// session manager persists tokens into. Writes are atomic per key and
// every write fans out a change notification, so several session
// managers sharing one store behave like browser tabs sharing
// localStorage and its storage events.
package storage

// Keys the session manager owns inside a Store.
const (
	KeyAccessToken  = "auth.access_token"
	KeyRefreshToken = "auth.refresh_token"
	KeyUser         = "auth.user"
	KeyPermissions  = "auth.permissions"
	KeySync         = "auth.sync"
)

type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
	// Subscribe registers a listener invoked after every Set/Remove
	// with the affected key. Listeners run on the writer's goroutine
	// and must not block.
	Subscribe(fn func(key string)) (cancel func())
}
