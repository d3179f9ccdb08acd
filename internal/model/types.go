package model

import "time"

// User represents the subset of X user fields the relay passes through.
type User struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url"`
	Verified        bool   `json:"verified"`
}

// Tweet is a raw home timeline entry.
type Tweet struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	AuthorID  string    `json:"author_id"`
}

// TimelineItem is a tweet merged with its author's profile.
type TimelineItem struct {
	ID              string    `json:"id"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"created_at"`
	AuthorID        string    `json:"author_id"`
	Username        string    `json:"username"`
	ProfileImageURL string    `json:"profile_image_url"`
	Verified        bool      `json:"verified"`
	Name            string    `json:"name"`
}

// ReplyResult is one drafted reply for a timeline item.
type ReplyResult struct {
	TweetID         string `json:"tweet_id"`
	Tweet           string `json:"tweet"`
	Reply           string `json:"reply"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
	Verified        bool   `json:"verified"`
	Name            string `json:"name"`
}

// Profile is the short form of the authenticated X account.
type Profile struct {
	ProfilePic string `json:"profile_pic"`
	Username   string `json:"username"`
	Name       string `json:"name"`
}

// Credentials are a user's OAuth 1.0a access token pair.
type Credentials struct {
	AccessToken  string
	AccessSecret string
}

// Valid reports whether both halves of the pair are present.
func (c Credentials) Valid() bool { return c.AccessToken != "" && c.AccessSecret != "" }

// ReplyDraft is a reply the caller wants posted.
type ReplyDraft struct {
	TweetID string `json:"tweet_id"`
	Reply   string `json:"reply"`
}

// PostedTweet is the X API's answer to a created tweet.
type PostedTweet struct {
	ID                  string   `json:"id"`
	Text                string   `json:"text"`
	EditHistoryTweetIDs []string `json:"edit_history_tweet_ids,omitempty"`
}
