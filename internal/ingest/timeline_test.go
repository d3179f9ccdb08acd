package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialrelay/internal/logging"
	"socialrelay/internal/model"
)

type fakeX struct {
	tweets  []model.Tweet
	users   map[string]model.User
	batches [][]string
	err     error
}

func (f *fakeX) GetHomeTimeline(context.Context, model.Credentials) ([]model.Tweet, error) {
	return f.tweets, f.err
}

func (f *fakeX) GetUsersByIDs(_ context.Context, ids []string) ([]model.User, error) {
	f.batches = append(f.batches, append([]string(nil), ids...))
	var out []model.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func TestCollectAuthorsDedupesAndBatches(t *testing.T) {
	f := &fakeX{users: map[string]model.User{}}
	var tweets []model.Tweet
	for i := 0; i < 250; i++ {
		id := fmt.Sprint(i)
		f.users[id] = model.User{ID: id}
		tweets = append(tweets, model.Tweet{ID: "t" + id, AuthorID: id}, model.Tweet{ID: "u" + id, AuthorID: id})
	}
	tweets = append(tweets, model.Tweet{ID: "anon"})

	authors, err := CollectAuthors(context.Background(), f, tweets)
	require.NoError(t, err)
	assert.Len(t, authors, 250)
	require.Len(t, f.batches, 3)
	assert.Len(t, f.batches[0], 100)
	assert.Len(t, f.batches[1], 100)
	assert.Len(t, f.batches[2], 50)
	assert.Equal(t, "0", f.batches[0][0])
}

func TestCollectAuthorsNoTweetsNoLookup(t *testing.T) {
	f := &fakeX{}
	authors, err := CollectAuthors(context.Background(), f, nil)
	require.NoError(t, err)
	assert.Empty(t, authors)
	assert.Empty(t, f.batches)
}

func TestBuildTimelineItemsJoinsAndDropsOrphans(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tweets := []model.Tweet{
		{ID: "1", Text: "first", CreatedAt: at, AuthorID: "a"},
		{ID: "2", Text: "orphan", CreatedAt: at, AuthorID: "gone"},
		{ID: "3", Text: "third", CreatedAt: at, AuthorID: "b"},
	}
	authors := map[string]model.User{
		"a": {ID: "a", Username: "alice", Name: "Alice", ProfileImageURL: "pa", Verified: true},
		"b": {ID: "b", Username: "bob", Name: "Bob"},
	}
	items := BuildTimelineItems(tweets, authors, logging.Discard())
	assert.Equal(t, []model.TimelineItem{
		{ID: "1", Text: "first", CreatedAt: at, AuthorID: "a", Username: "alice", ProfileImageURL: "pa", Verified: true, Name: "Alice"},
		{ID: "3", Text: "third", CreatedAt: at, AuthorID: "b", Username: "bob", Name: "Bob"},
	}, items)
}

func TestHomeTimeline(t *testing.T) {
	f := &fakeX{
		tweets: []model.Tweet{{ID: "1", Text: "hi", AuthorID: "a"}},
		users:  map[string]model.User{"a": {ID: "a", Username: "alice"}},
	}
	items, err := HomeTimeline(context.Background(), f, model.Credentials{}, logging.Discard())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "alice", items[0].Username)

	f.err = errors.New("401")
	_, err = HomeTimeline(context.Background(), f, model.Credentials{}, logging.Discard())
	assert.Error(t, err)
}
