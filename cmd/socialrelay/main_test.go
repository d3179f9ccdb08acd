package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialrelay/internal/config"
	"socialrelay/internal/logging"
	"socialrelay/internal/model"
)

func TestOpenSessionStoreSQLite(t *testing.T) {
	store, closeFn, err := openSessionStore(config.SessionConfig{Backend: "sqlite", DBPath: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	defer closeFn()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "id", []byte("v"), time.Minute))
	got, err := store.Get(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
	_, ok := store.(purger)
	assert.True(t, ok)
}

type countingPurger struct{ n atomic.Int32 }

func (c *countingPurger) Purge(context.Context) (int64, error) {
	c.n.Add(1)
	return 1, nil
}

func TestPurgeLoopStopsWithContext(t *testing.T) {
	p := &countingPurger{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		purgeLoop(ctx, p, 5*time.Millisecond, logging.Discard())
		close(done)
	}()
	require.Eventually(t, func() bool { return p.n.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purge loop did not stop")
	}
}

func TestPrintDrafts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printDrafts(&buf, []model.ReplyResult{{TweetID: "1", Tweet: "t", Reply: "r"}}))
	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "1", out[0]["tweet_id"])
	assert.Equal(t, "r", out[0]["reply"])
}

func TestNewReplyEngineUsesConfig(t *testing.T) {
	cfg := config.Default()
	e := newReplyEngine(cfg, logging.Discard())
	require.NotNil(t, e)
	out, err := e.GenerateReplies(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLLMOptionsUseCompletionTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Upstream.Timeout = 15 * time.Second
	cfg.LLM.Timeout = 30 * time.Second
	opts := llmOptions(cfg, logging.Discard())
	assert.Equal(t, 30*time.Second, opts.Timeout)
	assert.Zero(t, opts.RPS)
	assert.Equal(t, cfg.Upstream.MaxAttempts, opts.MaxAttempts)

	cfg.LLM.Timeout = 0
	assert.Equal(t, 15*time.Second, llmOptions(cfg, logging.Discard()).Timeout)
}
