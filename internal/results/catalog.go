// Package results lists and reads the CSV files scraping jobs leave under
// each user's prefix in the results bucket.
package results

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"scrape-portal/internal/logger"
	"scrape-portal/internal/storage"
	"scrape-portal/pkg/identity"
)

var (
	ErrListing     = errors.New("result listing failed")
	ErrNotFound    = errors.New("result not found")
	ErrInvalidName = errors.New("invalid result name")
)

// Result describes one CSV file in the caller's prefix.
type Result struct {
	Path         string    `json:"path"`
	Name         string    `json:"name"`
	Topic        string    `json:"topic"`
	Timestamp    time.Time `json:"timestamp"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ParseError   string    `json:"parse_error,omitempty"`
}

// sortKey is the time a result is ordered by: the filename timestamp, or the
// object's last-modified time when the filename carries none.
func (r Result) sortKey() time.Time {
	if r.ParseError == "" {
		return r.Timestamp
	}
	return r.LastModified
}

type Catalog struct {
	store storage.ObjectStore
}

func NewCatalog(store storage.ObjectStore) *Catalog {
	return &Catalog{store: store}
}

// List returns the caller's CSV results, newest first. Only keys under the
// caller's own prefix are ever returned.
func (c *Catalog) List(ctx context.Context, email string) ([]Result, error) {
	prefix := identity.Prefix(email)

	objects, err := c.store.List(ctx, prefix)
	if err != nil {
		err = errors.Mark(errors.Wrapf(err, "list %s", prefix), ErrListing)
		return nil, errors.WithHint(err, "results could not be listed; refresh to try again")
	}

	out := make([]Result, 0, len(objects))
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, prefix) || !strings.HasSuffix(obj.Key, ".csv") {
			continue
		}

		name := path.Base(obj.Key)
		res := Result{
			Path:         obj.Key,
			Name:         name,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		}
		topic, ts, perr := ParseFilename(name)
		res.Topic = topic
		if perr != nil {
			res.ParseError = perr.Error()
			logger.Logger.Debugw("Unparsable result filename", "path", obj.Key, "error", perr)
		} else {
			res.Timestamp = ts
		}
		out = append(out, res)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := out[i].sortKey(), out[j].sortKey()
		switch {
		case ki.IsZero() != kj.IsZero():
			return kj.IsZero()
		case !ki.Equal(kj):
			return ki.After(kj)
		default:
			return out[i].Path < out[j].Path
		}
	})
	return out, nil
}

// Fetch returns the stored bytes of path unchanged.
func (c *Catalog) Fetch(ctx context.Context, path string) ([]byte, error) {
	data, err := c.store.Get(ctx, path)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, errors.Mark(errors.Wrapf(err, "fetch %s", path), ErrNotFound)
		}
		return nil, errors.Wrapf(err, "fetch %s", path)
	}
	return data, nil
}

// FetchForUser resolves name inside the caller's prefix and fetches it. It
// returns the full object path alongside the data.
func (c *Catalog) FetchForUser(ctx context.Context, email, name string) ([]byte, string, error) {
	key, err := UserPath(email, name)
	if err != nil {
		return nil, "", err
	}
	data, err := c.Fetch(ctx, key)
	if err != nil {
		return nil, key, err
	}
	return data, key, nil
}

// UserPath joins name onto the caller's prefix. The name may contain
// sub-folders but must stay inside the prefix and name a .csv file.
func UserPath(email, name string) (string, error) {
	switch {
	case name == "":
		return "", errors.Mark(errors.New("empty result name"), ErrInvalidName)
	case strings.HasPrefix(name, "/"):
		return "", errors.Mark(errors.Newf("absolute result name %q", name), ErrInvalidName)
	case !strings.HasSuffix(name, ".csv"):
		return "", errors.Mark(errors.Newf("result %q is not a .csv file", name), ErrInvalidName)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." || seg == "." || seg == "" {
			return "", errors.Mark(errors.Newf("result name %q leaves the result folder", name), ErrInvalidName)
		}
	}
	return identity.Prefix(email) + name, nil
}
