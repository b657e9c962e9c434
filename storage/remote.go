package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	log "github.com/sirupsen/logrus"
)

// Remote is the opaque remote blob store: one table entity per (user, key)
// with the JSON snapshot in a single column. The engine treats it as
// write-and-forget; read failures degrade to "no prior state".
type Remote struct {
	table *aztables.Client
}

// NewRemote creates a Remote from the given connection string.
func NewRemote(connStr, tableName string) (*Remote, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Remote{table: svc.NewClient(tableName)}, nil
}

type blobEntity struct {
	aztables.Entity
	Data string `json:"Data"`
}

func (r *Remote) Load(ctx context.Context, userID, key string) ([]byte, bool) {
	resp, err := r.table.GetEntity(ctx, userID, key, nil)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "error": err}).Debug("remote load miss")
		return nil, false
	}
	var ent blobEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		log.WithFields(log.Fields{"key": key, "error": err}).Warn("remote blob entity malformed")
		return nil, false
	}
	if ent.Data == "" {
		return nil, false
	}
	return []byte(ent.Data), true
}

func (r *Remote) Save(ctx context.Context, userID, key string, data []byte) {
	ent := blobEntity{
		Entity: aztables.Entity{PartitionKey: userID, RowKey: key},
		Data:   string(data),
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return
	}
	if _, err := r.table.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace}); err != nil {
		// Swallowed: persistence failures are invisible to the engine.
		log.WithFields(log.Fields{"key": key, "error": err}).Warn("remote save failed")
	}
}
