package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeEventID computes a deterministic event identity using SHA256.
// Formula: SHA256(signature|mint|observed_at)
// Returns hex-encoded hash (64 characters).
//
// Webhook providers redeliver batches on timeout; the event ID lets the
// ingest path drop replays without a round trip to storage.
func ComputeEventID(signature, mint string, observedAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", signature, mint, observedAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
