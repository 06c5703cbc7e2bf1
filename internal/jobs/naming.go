package jobs

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const (
	// JobPrefix starts every generated job id.
	JobPrefix = "scraper-job"

	// maxJobIDLen is the Cloud Batch limit on job ids.
	maxJobIDLen = 63

	stampLayout = "20060102-150405"
	tokenLen    = 8
)

// jobIDPattern is the id syntax accepted by the batch service.
var jobIDPattern = regexp.MustCompile(`^[a-z]([a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidJobID reports whether id is acceptable to the batch service.
func ValidJobID(id string) bool {
	return jobIDPattern.MatchString(id)
}

// Slugify lowercases s, turns whitespace runs into single hyphens and drops
// everything outside [a-z0-9-].
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pendingHyphen = b.Len() > 0
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen {
				b.WriteByte('-')
				pendingHyphen = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NewJobID derives a job id from the first keyword, the submission time at
// second precision and a random token:
//
//	scraper-job-<slug>-<YYYYMMDD-HHMMSS>-<token>
//
// The token keeps ids unique when the same keyword is submitted twice within
// one second. The slug is shortened so the id stays within the service limit
// and is omitted when nothing of the keyword survives slugging.
func NewJobID(firstKeyword string, now time.Time) string {
	return newJobID(firstKeyword, now, randomToken())
}

func newJobID(firstKeyword string, now time.Time, token string) string {
	stamp := now.UTC().Format(stampLayout)
	fixed := len(JobPrefix) + 1 + len(stamp) + 1 + len(token)

	slug := Slugify(firstKeyword)
	if room := maxJobIDLen - fixed - 1; len(slug) > room {
		slug = strings.TrimRight(slug[:room], "-")
	}

	parts := []string{JobPrefix}
	if slug != "" {
		parts = append(parts, slug)
	}
	parts = append(parts, stamp, token)
	return strings.Join(parts, "-")
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:tokenLen]
}
