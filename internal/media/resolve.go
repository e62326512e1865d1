// Package media removes orphaned lesson videos from storage.
//
// Video URLs have the form {baseURL}/media/{mediaType}/{fileID}. Underscores in
// the media type map to nested directories in local storage.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrUnresolvable is returned for URLs that do not point at managed storage
var ErrUnresolvable = errors.New("media url cannot be resolved")

// Cleaner removes the media object behind a stored URL
type Cleaner interface {
	Cleanup(ctx context.Context, videoURL string) error
}

// Location identifies a stored media object
type Location struct {
	MediaType string
	FileID    string
}

// ResolveURL maps a stored video URL to its storage location.
//
// When baseURL is not empty, URLs served from another host are rejected so that
// external videos are never touched.
func ResolveURL(baseURL, videoURL string) (Location, error) {
	raw := strings.TrimSpace(videoURL)
	if raw == "" {
		return Location{}, fmt.Errorf("empty url: %w", ErrUnresolvable)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("invalid url %q: %w", raw, ErrUnresolvable)
	}

	if baseURL != "" && parsed.Host != "" {
		base, err := url.Parse(baseURL)
		if err != nil {
			return Location{}, fmt.Errorf("invalid media base url: %w", err)
		}
		if !strings.EqualFold(base.Host, parsed.Host) {
			return Location{}, fmt.Errorf("foreign host %q: %w", parsed.Host, ErrUnresolvable)
		}
	}

	segments := strings.Split(strings.Trim(path.Clean(parsed.Path), "/"), "/")
	if n := len(segments); n >= 3 && segments[n-3] == "media" {
		loc := Location{MediaType: segments[n-2], FileID: segments[n-1]}
		if validMediaType(loc.MediaType) && validSegment(loc.FileID) {
			return loc, nil
		}
	}

	return Location{}, fmt.Errorf("unexpected path %q: %w", parsed.Path, ErrUnresolvable)
}

// validMediaType checks every directory the media type maps to
func validMediaType(mediaType string) bool {
	for _, part := range strings.Split(mediaType, "_") {
		if !validSegment(part) {
			return false
		}
	}
	return true
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
