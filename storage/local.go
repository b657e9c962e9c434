package storage

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/peterbourgon/diskv/v3"
	log "github.com/sirupsen/logrus"
)

// Local is the synchronous on-disk blob mirror. It answers reads
// immediately after a reload, before any remote round-trip completes, and
// discards entries that no longer parse as JSON.
type Local struct {
	d *diskv.Diskv
}

// NewLocal creates a Local rooted at basePath. One file per (user, key)
// blob, users as directories.
func NewLocal(basePath string) *Local {
	return &Local{d: diskv.New(diskv.Options{
		BasePath:          basePath,
		AdvancedTransform: blobTransform,
		InverseTransform:  blobInverse,
		CacheSizeMax:      1024 * 1024, // 1MB
	})}
}

func (l *Local) Load(_ context.Context, userID, key string) ([]byte, bool) {
	data, err := l.d.Read(blobKey(userID, key))
	if err != nil {
		return nil, false
	}
	if !json.Valid(data) {
		// Corrupted cache entries are dropped, not surfaced.
		log.WithFields(log.Fields{"key": key}).Warn("discarding malformed local cache entry")
		_ = l.d.Erase(blobKey(userID, key))
		return nil, false
	}
	return data, true
}

func (l *Local) Save(_ context.Context, userID, key string, data []byte) {
	if err := l.d.Write(blobKey(userID, key), data); err != nil {
		log.WithFields(log.Fields{"key": key, "error": err}).Warn("local cache write failed")
	}
}

func blobKey(userID, key string) string {
	return userID + "/" + key
}

func blobTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, "/")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1] + ".json",
	}
}

func blobInverse(pk *diskv.PathKey) string {
	name := strings.TrimSuffix(pk.FileName, ".json")
	if len(pk.Path) == 0 {
		return name
	}
	return strings.Join(pk.Path, "/") + "/" + name
}
