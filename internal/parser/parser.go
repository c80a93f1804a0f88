// Package parser recovers structured content info from release filenames.
// Parsing is a deterministic rule-based pass: the same input always yields
// the same output, and no input makes it fail.
package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/moviezhub/moviezhub/internal/models"
)

// Result is the structured guess recovered from a filename. Title may be
// empty when nothing usable survives stripping; callers must treat an empty
// title as a parse failure.
type Result struct {
	Kind      models.ContentKind
	Title     string
	Season    int    // Series only
	Episode   int    // Series only
	Year      string // Movies only, empty when no plausible year token found
	Languages []string
}

// languageMap maps lower-cased filename keywords to canonical language
// names. Multi-value keywords expand to several names.
var languageMap = map[string][]string{
	"hindi":       {"Hindi"},
	"hin":         {"Hindi"},
	"english":     {"English"},
	"eng":         {"English"},
	"bengali":     {"Bengali"},
	"bangla":      {"Bangla"},
	"ben":         {"Bengali"},
	"tamil":       {"Tamil"},
	"tam":         {"Tamil"},
	"telugu":      {"Telugu"},
	"tel":         {"Telugu"},
	"kannada":     {"Kannada"},
	"kan":         {"Kannada"},
	"malayalam":   {"Malayalam"},
	"mal":         {"Malayalam"},
	"dual audio":  {"Hindi", "English"},
	"multi audio": {"Multi Audio"},
}

var (
	// S01E01, s01 e01, Season 1 Episode 1, with arbitrary separators
	seriesRegex = regexp.MustCompile(`(?i)^(.*?)[\s._-]*(?:S|Season)[\s._-]?(\d{1,2})[\s._-]*(?:E|Episode)[\s._-]?(\d{1,3})`)
	// Stray season token left at the end of a series title
	trailingSeasonRegex = regexp.MustCompile(`(?i)\b(season|s)\s*\d+\s*$`)
	// 4-digit year in [1950, 2099], optionally parenthesized
	yearRegex = regexp.MustCompile(`\(?(19[5-9]\d|20\d{2})\)?`)
	// Resolution token like 720p / 1080P / 2160p
	qualityRegex = regexp.MustCompile(`(?i)(\d{3,4})p`)

	bracketRegex = regexp.MustCompile(`\[.*?\]`)
	parenRegex   = regexp.MustCompile(`\(.*?\)`)
	spacesRegex  = regexp.MustCompile(`\s+`)

	// Release-metadata tokens stripped from movie titles
	junkRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(1080p|720p|480p|2160p|4k|uhd|web-?dl|webrip|brrip|bluray|dvdrip|hdrip|hdcam|camrip|x264|x265|hevc|avc|aac|ac3|dts|5\.1|7\.1)\b`),
		regexp.MustCompile(`(?i)\b(complete|pack|final|uncut|extended|remastered)\b`),
		bracketRegex,
		parenRegex,
	}

	languageRegexes = buildLanguageRegexes()

	titleCaser = cases.Title(language.English)
)

type languagePattern struct {
	re    *regexp.Regexp
	names []string
}

func buildLanguageRegexes() []languagePattern {
	patterns := make([]languagePattern, 0, len(languageMap))
	for keyword, names := range languageMap {
		patterns = append(patterns, languagePattern{
			re:    regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`),
			names: names,
		})
	}
	return patterns
}

// Parse extracts kind, title, season/episode or year, and languages from a
// raw filename. It is total over all strings and never returns an error.
func Parse(filename string) Result {
	cleaned := strings.TrimSpace(strings.NewReplacer(".", " ", "_", " ").Replace(filename))

	languages := detectLanguages(cleaned)

	// Series takes priority over a coincidental 4-digit "year" inside a
	// season token
	if m := seriesRegex.FindStringSubmatch(cleaned); m != nil {
		title := strings.TrimSpace(m[1])
		title = strings.TrimSpace(trailingSeasonRegex.ReplaceAllString(title, ""))
		title = strings.TrimSpace(bracketRegex.ReplaceAllString(title, ""))
		title = strings.TrimSpace(parenRegex.ReplaceAllString(title, ""))

		return Result{
			Kind:      models.KindSeries,
			Title:     finalizeTitle(title),
			Season:    atoi(m[2]),
			Episode:   atoi(m[3]),
			Languages: languages,
		}
	}

	year := ""
	title := cleaned
	if loc := yearRegex.FindStringSubmatchIndex(cleaned); loc != nil {
		year = cleaned[loc[2]:loc[3]]
		title = strings.TrimSpace(cleaned[:loc[0]])
	}

	lower := strings.ToLower(title)
	for _, lp := range languageRegexes {
		lower = lp.re.ReplaceAllString(lower, "")
	}
	title = lower
	for _, re := range junkRegexes {
		title = re.ReplaceAllString(title, "")
	}

	return Result{
		Kind:      models.KindMovie,
		Title:     finalizeTitle(title),
		Year:      year,
		Languages: languages,
	}
}

// DetectQuality returns the resolution label found in a filename ("720p",
// "1080p") or the fallback label when none is present
func DetectQuality(filename string) string {
	if m := qualityRegex.FindStringSubmatch(filename); m != nil {
		return m[1] + "p"
	}
	return models.DefaultQuality
}

// detectLanguages scans for whole-word language keywords and returns the
// sorted set of matched canonical names
func detectLanguages(name string) []string {
	lower := strings.ToLower(name)
	seen := make(map[string]struct{})
	for _, lp := range languageRegexes {
		if lp.re.MatchString(lower) {
			for _, n := range lp.names {
				seen[n] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	languages := make([]string, 0, len(seen))
	for n := range seen {
		languages = append(languages, n)
	}
	sort.Strings(languages)
	return languages
}

func finalizeTitle(title string) string {
	title = strings.TrimSpace(spacesRegex.ReplaceAllString(title, " "))
	return titleCaser.String(title)
}

// atoi converts digits already validated by a regex group
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
