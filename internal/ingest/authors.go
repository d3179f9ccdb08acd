// Package ingest turns a raw home timeline into author-enriched timeline items.
package ingest

import (
	"context"

	"socialrelay/internal/model"
)

// lookupBatch is the most ids one users lookup accepts.
const lookupBatch = 100

// UserLookup resolves user ids to profiles.
type UserLookup interface {
	GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
}

// CollectAuthors maps author IDs to users using batched lookups.
func CollectAuthors(ctx context.Context, client UserLookup, tweets []model.Tweet) (map[string]model.User, error) {
	seen := make(map[string]struct{}, len(tweets))
	ids := make([]string, 0, len(tweets))
	for _, t := range tweets {
		if t.AuthorID == "" {
			continue
		}
		if _, ok := seen[t.AuthorID]; ok {
			continue
		}
		seen[t.AuthorID] = struct{}{}
		ids = append(ids, t.AuthorID)
	}
	out := make(map[string]model.User, len(ids))
	for i := 0; i < len(ids); i += lookupBatch {
		end := min(i+lookupBatch, len(ids))
		users, err := client.GetUsersByIDs(ctx, ids[i:end])
		if err != nil {
			return out, err
		}
		for _, u := range users {
			out[u.ID] = u
		}
	}
	return out, nil
}
