// Package disruption holds the Night Express domain records and their stores:
// problems on routes, per-route subscribers and the broadcast audience.
package disruption

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNotFound reports that no problem carries the requested route name.
var ErrNotFound = errors.New("disruption: route not found")

// MediaType classifies an attachment.
type MediaType string

const (
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
)

// MediaRef points at an attachment: a Telegram file id or a raw URL.
type MediaRef struct {
	Type MediaType `json:"type"`
	File string    `json:"file"`
}

// IsLink reports whether File is a URL rather than a Telegram file id.
func (m MediaRef) IsLink() bool {
	return IsLink(m.File)
}

// Problem is a disruption announced on a route. Name is used as the lookup
// key but is not unique: lookups return the first match.
type Problem struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ETA         string     `json:"eta"`
	Media       []MediaRef `json:"media"`
}

var imageLink = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif)$`)

// IsLink reports whether text looks like an http(s) URL.
func IsLink(text string) bool {
	return strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://")
}

// ClassifyLink turns a pasted URL into a media reference. Only the file
// extension is inspected: image suffixes are photos, everything else is video.
func ClassifyLink(url string) MediaRef {
	t := MediaVideo
	if imageLink.MatchString(url) {
		t = MediaPhoto
	}
	return MediaRef{Type: t, File: url}
}
