// Package cache provides read-through caches in front of the party directory.
package cache

import (
	"encoding/json"
	"fmt"

	"github.com/collections/backend/internal/domain/collections"
)

// cachedParty is the serialized form of a resolved reference
type cachedParty struct {
	Kind        string `json:"kind"`
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

func encodeParty(r collections.Resolved) ([]byte, error) {
	return json.Marshal(cachedParty{
		Kind:        string(r.Kind),
		ID:          r.ID.String(),
		DisplayName: r.DisplayName,
		Email:       r.Email,
		Phone:       r.Phone,
	})
}

func decodeParty(data []byte, want collections.Reference) (collections.Resolved, error) {
	var p cachedParty
	if err := json.Unmarshal(data, &p); err != nil {
		return collections.Resolved{}, fmt.Errorf("failed to unmarshal party: %w", err)
	}
	if p.Kind != string(want.Kind) || p.ID != want.ID.String() {
		return collections.Resolved{}, fmt.Errorf("cached party %s/%s does not match %s/%s", p.Kind, p.ID, want.Kind, want.ID)
	}
	return collections.Resolved{
		Reference:   want,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		Phone:       p.Phone,
	}, nil
}

// partyKey is the cache key of a reference below prefix
func partyKey(prefix string, ref collections.Reference) string {
	return prefix + string(ref.Kind) + ":" + ref.ID.String()
}

// dedupe drops zero and repeated references, keeping first-seen order
func dedupe(refs []collections.Reference) []collections.Reference {
	seen := make(map[collections.Reference]struct{}, len(refs))
	out := make([]collections.Reference, 0, len(refs))
	for _, ref := range refs {
		if ref.IsZero() {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}
