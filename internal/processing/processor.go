package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

var (
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	activityID  = regexp.MustCompile(`activity-(\d+)`)
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "to": {}, "in": {}, "for": {},
	"and": {}, "or": {}, "of": {}, "on": {}, "with": {}, "from": {},
	"we": {}, "our": {}, "you": {}, "your": {}, "are": {}, "is": {},
	"this": {}, "that": {}, "have": {}, "has": {}, "will": {}, "can": {},
}

// NormalizeContent decodes HTML entities and squeezes whitespace while
// keeping punctuation, so hyphenated keywords such as "e-waste" survive.
func NormalizeContent(input string) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(input)
	decoded = whitespace.ReplaceAllString(decoded, " ")
	return strings.TrimSpace(decoded)
}

// ExtractURLs extracts all HTTP(S) URLs from the input text.
func ExtractURLs(input string) []string {
	if input == "" {
		return nil
	}
	matches := urlRegex.FindAllString(input, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var urls []string
	for _, u := range matches {
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	return urls
}

// RemoveURLs removes all URLs from the input text.
func RemoveURLs(input string) string {
	return urlRegex.ReplaceAllString(input, " ")
}

// CleanText strips HTML entities, punctuation, squeezes whitespace, and removes URLs.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(input)
	decoded = RemoveURLs(decoded)
	decoded = punctuation.ReplaceAllString(decoded, " ")
	decoded = whitespace.ReplaceAllString(decoded, " ")
	return strings.TrimSpace(decoded)
}

// ExtractKeywords returns the most frequent words that are not stop-words.
func ExtractKeywords(text string, limit, minLen int) []string {
	clean := strings.ToLower(CleanText(text))
	if clean == "" {
		return nil
	}

	freq := make(map[string]int)
	for _, token := range strings.Fields(clean) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if len([]rune(token)) < minLen {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		freq[token]++
	}

	if len(freq) == 0 {
		return nil
	}

	type kv struct {
		word  string
		count int
	}

	pairs := make([]kv, 0, len(freq))
	for word, count := range freq {
		pairs = append(pairs, kv{word: word, count: count})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count == pairs[j].count {
			return pairs[i].word < pairs[j].word
		}
		return pairs[i].count > pairs[j].count
	})

	n := limit
	if n <= 0 || n > len(pairs) {
		n = len(pairs)
	}

	keywords := make([]string, 0, n)
	for i := 0; i < n; i++ {
		keywords = append(keywords, pairs[i].word)
	}
	return keywords
}

// ExtractActivityID pulls the numeric LinkedIn activity ID out of a post URL
// such as https://www.linkedin.com/posts/acme_recycling-activity-7265-abcd.
// It returns "" when the URL carries none.
func ExtractActivityID(postURL string) string {
	u, err := url.Parse(strings.TrimSpace(postURL))
	if err != nil {
		return ""
	}
	for _, segment := range strings.Split(u.Path, "/") {
		if !strings.Contains(segment, "activity") {
			continue
		}
		if m := activityID.FindStringSubmatch(segment); m != nil {
			return m[1]
		}
	}
	return ""
}

// BuildDocumentID hashes the post URL, so re-indexing the same post
// overwrites the previous document.
func BuildDocumentID(postURL string) string {
	s := sha1.Sum([]byte(strings.TrimSpace(postURL)))
	return hex.EncodeToString(s[:])
}

// Fingerprint hashes the fields that change when a post is edited.
func Fingerprint(title, content string) string {
	s := sha1.Sum([]byte(title + "|" + content))
	return hex.EncodeToString(s[:])
}

// GenerateTitleFromText creates a title from the first sentence or first N words of text.
// Returns empty string if text is empty.
func GenerateTitleFromText(text string, maxWords int) string {
	if text == "" {
		return ""
	}

	textWithoutURLs := RemoveURLs(text)

	sentenceEnd := strings.IndexAny(textWithoutURLs, ".!?")
	var firstSentence string
	if sentenceEnd > 0 {
		firstSentence = strings.TrimSpace(textWithoutURLs[:sentenceEnd])
	} else {
		firstSentence = textWithoutURLs
	}

	words := strings.Fields(firstSentence)
	if len(words) == 0 {
		return ""
	}

	if maxWords > 0 && len(words) > maxWords {
		return strings.Join(words[:maxWords], " ") + "..."
	}
	return strings.Join(words, " ")
}
