package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/lorios22/twitter-news-classifier/internal/domain"
)

var errNoItems = errors.New("input contains no items")

type tweetsFile struct {
	Tweets []json.RawMessage `json:"tweets"`
}

// loadItems reads an input file holding either a JSON array of items or an
// object with a "tweets" array. Elements are decoded lazily so that one bad
// element fails only its own item.
func loadItems(path string) ([]domain.ItemSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return parseItems(data)
}

func parseItems(data []byte) ([]domain.ItemSource, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errNoItems
	}

	var raws []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("decode input array: %w", err)
		}
	case '{':
		var f tweetsFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode input object: %w", err)
		}
		raws = f.Tweets
	default:
		return nil, errors.New("input must be a JSON array or an object with a \"tweets\" array")
	}
	if len(raws) == 0 {
		return nil, errNoItems
	}

	out := make([]domain.ItemSource, len(raws))
	for i, raw := range raws {
		out[i] = rawItem{index: i, raw: raw}
	}
	return out, nil
}

type rawItem struct {
	index int
	raw   json.RawMessage
}

func (r rawItem) ItemID() string {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(r.raw, &head); err == nil && head.ID != "" {
		return head.ID
	}
	return fmt.Sprintf("item-%d", r.index)
}

func (r rawItem) Load(ctx context.Context) (*domain.ContentItem, error) {
	var item domain.ContentItem
	if err := json.Unmarshal(r.raw, &item); err != nil {
		return nil, fmt.Errorf("decode item %d: %w", r.index, err)
	}
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("item %d: %w", r.index, err)
	}
	return &item, nil
}
