package ingest

import (
	"context"
	"log/slog"

	"socialrelay/internal/model"
)

// TimelineSource is what HomeTimeline needs from the X client.
type TimelineSource interface {
	UserLookup
	GetHomeTimeline(ctx context.Context, creds model.Credentials) ([]model.Tweet, error)
}

// BuildTimelineItems joins tweets with their authors, keeping timeline order.
// Tweets whose author is missing from authors are dropped.
func BuildTimelineItems(tweets []model.Tweet, authors map[string]model.User, logger *slog.Logger) []model.TimelineItem {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]model.TimelineItem, 0, len(tweets))
	for _, t := range tweets {
		u, ok := authors[t.AuthorID]
		if !ok {
			logger.Debug("timeline_author_missing", slog.String("tweet_id", t.ID), slog.String("author_id", t.AuthorID))
			continue
		}
		out = append(out, model.TimelineItem{
			ID:              t.ID,
			Text:            t.Text,
			CreatedAt:       t.CreatedAt,
			AuthorID:        t.AuthorID,
			Username:        u.Username,
			ProfileImageURL: u.ProfileImageURL,
			Verified:        u.Verified,
			Name:            u.Name,
		})
	}
	return out
}

// HomeTimeline fetches the user's home timeline and attaches author profiles.
func HomeTimeline(ctx context.Context, src TimelineSource, creds model.Credentials, logger *slog.Logger) ([]model.TimelineItem, error) {
	tweets, err := src.GetHomeTimeline(ctx, creds)
	if err != nil {
		return nil, err
	}
	authors, err := CollectAuthors(ctx, src, tweets)
	if err != nil {
		return nil, err
	}
	return BuildTimelineItems(tweets, authors, logger), nil
}
