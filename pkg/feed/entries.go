package feed

import (
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/shouni/go-rss-harvester/pkg/types"
)

// customPubDateKey は、RSS 以外のフィードで独自要素として現れる pubDate のキーです。
const customPubDateKey = "pubDate"

// EntrySource は、RawEntry のリストを提供できる任意の型を表します。
type EntrySource interface {
	Entries() []types.RawEntry
}

// FeedAdapter は gofeed.Feed を EntrySource に適合させるアダプターです。
// gofeed.Feed の具体的な構造への依存を内部に閉じ込めます。
type FeedAdapter struct {
	*gofeed.Feed
}

// NewFeedAdapter は gofeed.Feed から新しいアダプターを作成します。
func NewFeedAdapter(feed *gofeed.Feed) *FeedAdapter {
	return &FeedAdapter{Feed: feed}
}

// Entries はフィードのアイテムを順序どおりに RawEntry へ変換します。
func (a *FeedAdapter) Entries() []types.RawEntry {
	if a.Feed == nil || len(a.Items) == 0 {
		return []types.RawEntry{}
	}

	entries := make([]types.RawEntry, 0, len(a.Items))
	for _, item := range a.Items {
		if item == nil {
			continue
		}
		entries = append(entries, toRawEntry(item))
	}
	return entries
}

// AllEntries は EntrySource からエントリを取り出す汎用関数です。
func AllEntries(source EntrySource) []types.RawEntry {
	if source == nil {
		return []types.RawEntry{}
	}
	return source.Entries()
}

func toRawEntry(item *gofeed.Item) types.RawEntry {
	entry := types.RawEntry{
		Title:       strings.TrimSpace(item.Title),
		Link:        strings.TrimSpace(item.Link),
		Description: item.Description,
		Content:     item.Content,
		Authors:     authorNames(item),
		DateFields:  dateFields(item),
	}
	if len(item.Categories) > 0 {
		entry.Category = item.Categories[0]
	}
	return entry
}

// dateFields は published, updated, pubDate の優先順で、存在するフィールドのみを返します。
func dateFields(item *gofeed.Item) []string {
	var fields []string
	if item.Published != "" {
		fields = append(fields, item.Published)
	}
	if item.Updated != "" {
		fields = append(fields, item.Updated)
	}
	if v := item.Custom[customPubDateKey]; v != "" {
		fields = append(fields, v)
	}
	return fields
}

func authorNames(item *gofeed.Item) []string {
	people := item.Authors
	if len(people) == 0 && item.Author != nil {
		people = []*gofeed.Person{item.Author}
	}

	names := make([]string, 0, len(people))
	for _, p := range people {
		if p == nil {
			continue
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = strings.TrimSpace(p.Email)
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
