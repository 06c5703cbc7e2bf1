package results

import (
	"path"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// timestampLayouts are tried in order against the last "_" segment of a
// result filename.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15-04-05",
	"20060102T150405",
}

// ParseFilename splits a result filename like "cats_2025-08-13T14:32:45.csv"
// into its topic and UTC timestamp. The topic is returned even when the
// timestamp does not parse.
func ParseFilename(name string) (topic string, ts time.Time, err error) {
	base := strings.TrimSuffix(path.Base(name), ".csv")

	i := strings.LastIndex(base, "_")
	if i < 0 {
		return base, time.Time{}, errors.Newf("filename %q has no _<timestamp> suffix", name)
	}
	topic, stamp := base[:i], base[i+1:]

	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, stamp, time.UTC); err == nil {
			return topic, ts, nil
		}
	}
	return topic, time.Time{}, errors.Newf("unrecognized timestamp %q in %q", stamp, name)
}
