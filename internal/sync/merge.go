package sync

import (
	"strings"
	"time"
)

// Role labels accumulate over repeated syncs: "Older Ross | Young Ross" from
// an aggregate roles array, later prepended with a rename. Membership is
// checked against the delimiter-split set, not raw substring containment, so
// "Ross" does not falsely match inside "Older Ross".

const (
	labelSep     = ", "
	aggregateSep = " | "
)

func splitLabels(s string) []string {
	s = strings.ReplaceAll(s, aggregateSep, labelSep)
	parts := strings.Split(s, labelSep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MergeLabel folds a freshly fetched role/job label into the stored one.
// Labels already present leave the stored value unchanged; new ones are
// prepended as "new, old".
func MergeLabel(existing, incoming string) string {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		return existing
	}
	if existing == "" {
		return incoming
	}
	have := make(map[string]struct{})
	for _, p := range splitLabels(existing) {
		have[strings.ToLower(p)] = struct{}{}
	}
	missing := make([]string, 0, 2)
	for _, p := range splitLabels(incoming) {
		if _, ok := have[strings.ToLower(p)]; !ok {
			missing = append(missing, p)
			have[strings.ToLower(p)] = struct{}{}
		}
	}
	if len(missing) == 0 {
		return existing
	}
	return strings.Join(missing, labelSep) + labelSep + existing
}

// JoinAggregate renders a roles/jobs array as a single label.
func JoinAggregate(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, aggregateSep)
}

// averageRating guards the episode rollup against a zero count; nil means
// "no rating" rather than NaN.
func averageRating(sum float64, count int) *float64 {
	if count == 0 {
		return nil
	}
	avg := sum / float64(count)
	return &avg
}

// dateToUnix parses the provider's bare-date form; zero means unparsable.
func dateToUnix(s string) int64 {
	if s == "" {
		return 0
	}
	// release_dates entries carry a full timestamp, details a bare date
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix()
		}
	}
	return 0
}

const publishBackdate = 14 * 24 * time.Hour

// backdatedPublish returns release minus 14 days when that instant is still
// in the past, otherwise nil — future releases stay unpublished until their
// embargo window opens.
func backdatedPublish(releaseTS int64, now time.Time) *time.Time {
	if releaseTS == 0 {
		return nil
	}
	t := time.Unix(releaseTS, 0).UTC().Add(-publishBackdate)
	if t.After(now) {
		return nil
	}
	return &t
}
