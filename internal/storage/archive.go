package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/timmy/ottgen/internal/domain"
)

// PayloadArchive keeps a JSON copy of every submitted payload for audit and replay.
type PayloadArchive struct {
	store  ObjectStorage
	prefix string
}

// NewPayloadArchive wraps store. Keys are written under prefix.
func NewPayloadArchive(store ObjectStorage, prefix string) *PayloadArchive {
	return &PayloadArchive{store: store, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for a candidate submitted at the given time:
// <prefix>/<YYYY-MM-DD>/<id>-<catalog_id>.json
func (a *PayloadArchive) Key(candidateID, catalogID int64, at time.Time) string {
	name := fmt.Sprintf("%d-%d.json", candidateID, catalogID)
	return path.Join(a.prefix, domain.UTCDate(at), name)
}

// Put stores payload as JSON and returns the written key.
func (a *PayloadArchive) Put(ctx context.Context, c *domain.Candidate, payload any, at time.Time) (string, error) {
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	key := a.Key(c.ID, c.CatalogID, at)
	if err := a.store.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		return "", err
	}
	return key, nil
}
