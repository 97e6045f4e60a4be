package consensus

import (
	"regexp"
	"strconv"
	"strings"

	"grabbit/internal/document"
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// knownSiteTails are catalog/site names that show up as informational title
// suffixes on search results ("Artist - Album | Discogs").
var knownSiteTails = []string{
	"wikipedia",
	"discogs",
	"imdb",
	"tmdb",
	"tvdb",
	"goodreads",
	"open library",
	"spotify",
	"bandcamp",
	"youtube",
	"apple music",
	"rateyourmusic",
	"rym",
	"musicbrainz",
	"allmusic",
	"last.fm",
	"soundcloud",
	"amazon",
}

// StripSiteSuffix removes a trailing " - Site" or " | Site" segment when the
// tail looks like a domain or a known catalog name.
func StripSiteSuffix(title string) string {
	cleaned := strings.TrimSpace(title)
	// Pipe tails go first: a " - " split would otherwise swallow a
	// "Title | Site" segment whole.
	for _, sep := range []string{" | ", " - "} {
		if !strings.Contains(cleaned, sep) {
			continue
		}
		parts := strings.Split(cleaned, sep)
		tail := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
		if strings.Contains(tail, ".") || tailMatchesKnownSite(tail) {
			cleaned = strings.TrimSpace(strings.Join(parts[:len(parts)-1], sep))
		}
	}
	return cleaned
}

func tailMatchesKnownSite(tail string) bool {
	for _, site := range knownSiteTails {
		if strings.Contains(tail, site) {
			return true
		}
	}
	return false
}

// ExtractYear pulls a 4-digit 19xx/20xx year out of free text, or 0.
func ExtractYear(text string) int {
	matched := yearPattern.FindString(text)
	if matched == "" {
		return 0
	}
	year, err := strconv.Atoi(matched)
	if err != nil {
		return 0
	}
	return year
}

// Fields is the authoritative field set extracted from a result title.
type Fields struct {
	Artist string
	Title  string
	Author string
	Year   int
}

// Empty reports whether nothing was extracted.
func (f Fields) Empty() bool {
	return f.Artist == "" && f.Title == "" && f.Author == "" && f.Year == 0
}

// FieldsFromTitle splits a cleaned result title into media-type-appropriate
// fields: (artist, title) for music on the first " - ", (title, author) for
// books on " by " or " - ". Other media types keep the whole title.
func FieldsFromTitle(mediaType, title string) Fields {
	title = strings.TrimSpace(title)
	if title == "" {
		return Fields{}
	}
	out := Fields{Year: ExtractYear(title)}
	switch mediaType {
	case document.MediaMusic:
		if artist, release, ok := strings.Cut(title, " - "); ok {
			artist = strings.TrimSpace(artist)
			release = strings.TrimSpace(release)
			if artist != "" && release != "" {
				out.Artist = artist
				out.Title = release
				return out
			}
		}
		out.Title = title
		return out
	case document.MediaBook:
		lower := strings.ToLower(title)
		if idx := strings.Index(lower, " by "); idx >= 0 {
			out.Title = strings.TrimSpace(title[:idx])
			out.Author = strings.TrimSpace(title[idx+4:])
			return out
		}
		if bookTitle, author, ok := strings.Cut(title, " - "); ok {
			bookTitle = strings.TrimSpace(bookTitle)
			author = strings.TrimSpace(author)
			if bookTitle != "" && author != "" {
				out.Title = bookTitle
				out.Author = author
				return out
			}
		}
		out.Title = title
		return out
	default:
		out.Title = title
		return out
	}
}
