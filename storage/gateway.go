package storage

import "context"

// Gateway stores per-user JSON blobs under short logical keys. It is the
// persistence boundary of the agenda engine: the engine writes whole
// snapshots through it and never learns whether a write reached the remote
// store.
//
// Load is best-effort; any failure (missing key, auth, network, malformed
// payload) comes back as ok=false and the caller seeds default state.
// Save is best-effort and swallows failures; there is no retry beyond the
// next natural write.
type Gateway interface {
	Load(ctx context.Context, userID, key string) ([]byte, bool)
	Save(ctx context.Context, userID, key string, data []byte)
}
