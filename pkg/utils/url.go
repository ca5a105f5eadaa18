package utils

import (
	"net/url"
	"regexp"
	"strconv"
)

var youtubeRe = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/.+$`)

// IsValidURL accepts absolute http(s) URLs with a host.
func IsValidURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

func IsYouTubeURL(raw string) bool {
	return youtubeRe.MatchString(raw)
}

// YouTubeVideoID extracts the video id from youtube.com/watch and youtu.be
// style links. Returns "" when none is present.
func YouTubeVideoID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Host == "youtu.be" || u.Host == "www.youtu.be" {
		if len(u.Path) > 1 {
			return u.Path[1:]
		}
		return ""
	}
	return u.Query().Get("v")
}

// YouTubeTimestampURL returns the original URL with a t= parameter pointing
// at the given offset. Non-parseable URLs are returned unchanged.
func YouTubeTimestampURL(original string, timestampMs int64) string {
	u, err := url.Parse(original)
	if err != nil {
		return original
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(timestampMs/1000, 10))
	u.RawQuery = q.Encode()
	return u.String()
}
