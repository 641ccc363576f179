package reportpdf

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
	"github.com/nicholaszhao/uptime-report-pdf/packages/go/storage"
)

// Locator finds the newest report object under a period prefix
type Locator struct {
	store    storage.ObjectStore
	fileName string
	depth    int  // folder segments allowed between prefix and file
	keepLast bool // on equal timestamps keep the later observed candidate
}

// NewLocator creates a locator for fileName. tieBreak is "first" or "last".
func NewLocator(store storage.ObjectStore, fileName string, depth int, tieBreak string) *Locator {
	return &Locator{
		store:    store,
		fileName: fileName,
		depth:    depth,
		keepLast: tieBreak == "last",
	}
}

// FindLatest scans every page under prefix and returns the qualifying object
// with the latest modification time. It returns nil, nil when nothing matches.
func (l *Locator) FindLatest(ctx context.Context, bucket, prefix string) (*models.ObjectInfo, error) {
	var latest *models.ObjectInfo
	scanned := 0

	err := l.store.List(ctx, bucket, prefix, func(page []models.ObjectInfo) error {
		scanned += len(page)
		for i := range page {
			obj := page[i]
			if !l.Matches(prefix, obj.Key) {
				continue
			}
			if latest == nil || obj.LastModified.After(latest.LastModified) ||
				(l.keepLast && obj.LastModified.Equal(latest.LastModified)) {
				latest = &obj
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("bucket", bucket).
		Str("prefix", prefix).
		Int("scanned", scanned).
		Bool("found", latest != nil).
		Msg("Report lookup complete")

	return latest, nil
}

// Matches reports whether key is prefix+file or prefix+<segments>/file
// with at most depth non-empty folder segments.
func (l *Locator) Matches(prefix, key string) bool {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return false
	}
	if rest == l.fileName {
		return true
	}

	dir, ok := strings.CutSuffix(rest, "/"+l.fileName)
	if !ok || dir == "" {
		return false
	}
	segments := strings.Split(dir, "/")
	if len(segments) > l.depth {
		return false
	}
	for _, s := range segments {
		if s == "" {
			return false
		}
	}
	return true
}
