package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrItemIDEmpty   = errors.New("content item id is empty")
	ErrItemTextEmpty = errors.New("content item text is empty")
)

type AuthorProfile struct {
	DisplayName    string    `json:"display_name,omitempty"`
	Verified       bool      `json:"verified"`
	FollowersCount int       `json:"followers_count"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// ContentItem is an immutable social post supplied by an external fetcher.
type ContentItem struct {
	ID             string         `json:"id"`
	Text           string         `json:"text"`
	AuthorID       string         `json:"author_id,omitempty"`
	AuthorUsername string         `json:"author_username,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	LikeCount      int            `json:"like_count"`
	RetweetCount   int            `json:"retweet_count"`
	ReplyCount     int            `json:"reply_count"`
	QuoteCount     int            `json:"quote_count"`
	HasMedia       bool           `json:"has_media"`
	IsThread       bool           `json:"is_thread"`
	ExternalLinks  []string       `json:"external_links,omitempty"`
	Author         *AuthorProfile `json:"author,omitempty"`
	ThreadContext  []string       `json:"thread_context,omitempty"`
}

func (c *ContentItem) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrItemIDEmpty
	}
	if strings.TrimSpace(c.Text) == "" {
		return ErrItemTextEmpty
	}
	return nil
}

// AuthorKey is the entity key used for per-author memory namespaces.
func (c *ContentItem) AuthorKey() string {
	if c.AuthorID != "" {
		return c.AuthorID
	}
	if c.AuthorUsername != "" {
		return c.AuthorUsername
	}
	return "unknown"
}

func (c *ContentItem) TotalEngagement() int {
	return c.LikeCount + c.RetweetCount + c.ReplyCount + c.QuoteCount
}

// EngagementScore maps raw engagement onto 0-10, saturating at 1000 interactions.
func (c *ContentItem) EngagementScore() float64 {
	return math.Min(10, float64(c.TotalEngagement())/100)
}

// ContextBlob renders the text description of the item handed to every agent.
func (c *ContentItem) ContextBlob() string {
	var sb strings.Builder

	sb.WriteString("CONTENT:\n")
	sb.WriteString(c.Text)
	sb.WriteString("\n\nAUTHOR INFORMATION:\n")
	fmt.Fprintf(&sb, "- Username: @%s\n", orNA(c.AuthorUsername))
	if c.Author != nil {
		fmt.Fprintf(&sb, "- Display Name: %s\n", orNA(c.Author.DisplayName))
		fmt.Fprintf(&sb, "- Verified: %t\n", c.Author.Verified)
		fmt.Fprintf(&sb, "- Followers: %d\n", c.Author.FollowersCount)
		if !c.Author.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "- Account Created: %s\n", c.Author.CreatedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(&sb, "- Bio: %s\n", orNA(c.Author.Description))
	} else {
		sb.WriteString("- Profile: N/A\n")
	}

	sb.WriteString("\nENGAGEMENT METRICS:\n")
	fmt.Fprintf(&sb, "- Likes: %d\n", c.LikeCount)
	fmt.Fprintf(&sb, "- Reposts: %d\n", c.RetweetCount)
	fmt.Fprintf(&sb, "- Replies: %d\n", c.ReplyCount)
	fmt.Fprintf(&sb, "- Quotes: %d\n", c.QuoteCount)
	fmt.Fprintf(&sb, "- Engagement Score: %.2f/10\n", c.EngagementScore())

	sb.WriteString("\nTECHNICAL METADATA:\n")
	fmt.Fprintf(&sb, "- ID: %s\n", c.ID)
	if !c.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "- Created: %s\n", c.CreatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "- Is Thread: %t\n", c.IsThread)
	fmt.Fprintf(&sb, "- Has Media: %t\n", c.HasMedia)
	fmt.Fprintf(&sb, "- External Links: %d\n", len(c.ExternalLinks))

	sb.WriteString("\nMEDIA & LINKS:\n")
	if len(c.ExternalLinks) == 0 && !c.HasMedia {
		sb.WriteString("No external media or links detected.\n")
	}
	for i, link := range c.ExternalLinks {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, link)
	}

	sb.WriteString("\nTHREAD CONTEXT:\n")
	if len(c.ThreadContext) == 0 {
		sb.WriteString("Standalone post.")
	}
	for i, t := range c.ThreadContext {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, t)
	}

	return strings.TrimSpace(sb.String())
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// ItemSource yields a content item for the batch manager. Load errors are
// structural failures and fall under the batch retry policy.
type ItemSource interface {
	ItemID() string
	Load(ctx context.Context) (*ContentItem, error)
}

type staticSource struct {
	item ContentItem
}

// StaticItem wraps an already loaded item as an ItemSource.
func StaticItem(item ContentItem) ItemSource {
	return staticSource{item: item}
}

func (s staticSource) ItemID() string { return s.item.ID }

func (s staticSource) Load(ctx context.Context) (*ContentItem, error) {
	item := s.item
	return &item, nil
}

// StaticItems wraps a slice of items.
func StaticItems(items []ContentItem) []ItemSource {
	out := make([]ItemSource, len(items))
	for i := range items {
		out[i] = StaticItem(items[i])
	}
	return out
}
