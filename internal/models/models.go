// Package models holds the data types shared across the pipeline.
package models

import (
	"strings"
	"time"
)

// RawEntry is a single item as it came from a feed, before filtering.
// It lives only for the duration of one collect pass.
type RawEntry struct {
	Source    string
	Title     string
	Link      string
	Summary   string
	Published *time.Time
	MediaURL  string
}

// NewsItem is a normalized feed entry that passed filtering.
// Identity is the link: within one run no two items share it.
type NewsItem struct {
	Source    string
	Title     string
	Link      string
	Summary   string
	Published *time.Time
	Keywords  []string
	MediaURL  string
}

// RankedNews is a news item with its relevance score attached.
// Score is always within [1,10].
type RankedNews struct {
	News  NewsItem
	Score int
	Notes string
}

// GeneratedPost is the validated text bundle produced for one accepted item.
type GeneratedPost struct {
	Title           string
	TranslatedTitle string
	Summary         string
	ShortBody       string
	LongBody        string
	Hashtags        []string
}

// HashtagLine renders hashtags as a single "#a #b #c" line.
func (p GeneratedPost) HashtagLine() string {
	if len(p.Hashtags) == 0 {
		return ""
	}
	tags := make([]string, 0, len(p.Hashtags))
	for _, tag := range p.Hashtags {
		tags = append(tags, "#"+tag)
	}
	return strings.Join(tags, " ")
}

// Formatted returns the full post text: long body plus the hashtag line.
func (p GeneratedPost) Formatted() string {
	return strings.TrimSpace(p.LongBody + "\n\n" + p.HashtagLine())
}

// ImageSource tags which strategy produced an image.
type ImageSource string

const (
	ImageSourceRSS       ImageSource = "rss"
	ImageSourcePexels    ImageSource = "pexels"
	ImageSourceGenerated ImageSource = "generated"
)

// Label returns the human-readable form used in the spreadsheet.
func (s ImageSource) Label() string {
	switch s {
	case ImageSourceRSS:
		return "RSS media"
	case ImageSourcePexels:
		return "Pexels search"
	case ImageSourceGenerated:
		return "AI generated"
	}
	return ""
}

// ImageAsset is the hosted image chosen for a post.
type ImageAsset struct {
	URL    string
	Source ImageSource
	Prompt string
}

// Publication statuses derived from the relevance score.
const (
	StatusWritten = "Written"
	StatusRevised = "Revised"
)

// PublicationRecord is the write-once aggregate persisted for one
// successfully processed item.
type PublicationRecord struct {
	Date          time.Time
	Source        string
	Title         string
	Link          string
	Summary       string
	Post          GeneratedPost
	Image         ImageAsset
	Score         int
	Status        string
	Notes         string
	TelegraphLink string
	VKPostLink    string
	TGPostLink    string
}
