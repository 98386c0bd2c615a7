package plan

import (
	"fmt"
	"regexp"
	"time"
)

type Kind int

const (
	KindPhoto Kind = iota
	KindVideo
)

var (
	photoPrefixes = []string{"IMG_", "PHOTO_", "PIC_", "SHOT_"}
	videoPrefixes = []string{"IMG_", "VID_", "VIDEO_", "CLIP_", "REC_", "MOV_"}
)

// Extension is the upper-case extension a camera would write for kind.
func Extension(kind Kind) string {
	if kind == KindVideo {
		return ".MP4"
	}
	return ".JPG"
}

// FilenamePattern matches every name the planner can produce for kind.
func FilenamePattern(kind Kind) *regexp.Regexp {
	prefixes := `(IMG|PHOTO|PIC|SHOT)_`
	if kind == KindVideo {
		prefixes = `(IMG|VID|VIDEO|CLIP|REC|MOV)_`
	}
	return regexp.MustCompile(`^` + prefixes + `(\d{4}|\d{8}_?\d{6})` + regexp.QuoteMeta(Extension(kind)) + `$`)
}

// Filename draws a device-style name: a 4-digit counter most of the time,
// otherwise a date/time stamp from the last 90 days.
func (p *Planner) Filename(kind Kind) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filename(kind, p.now())
}

func (p *Planner) filename(kind Kind, now time.Time) string {
	prefixes := photoPrefixes
	if kind == KindVideo {
		prefixes = videoPrefixes
	}
	prefix := prefixes[p.rng.IntN(len(prefixes))]
	ext := Extension(kind)

	if p.chance(0.7) {
		return fmt.Sprintf("%s%d%s", prefix, p.intIn(1000, 9999), ext)
	}

	stamp := now.Add(-time.Duration(p.intIn(0, 90)) * day)
	jitter := time.Duration(p.intIn(0, 23))*time.Hour +
		time.Duration(p.intIn(0, 59))*time.Minute +
		time.Duration(p.intIn(0, 59))*time.Second
	stamp = stamp.Add(jitter)
	if stamp.After(now) {
		stamp = stamp.Add(-day)
	}

	sep := ""
	if p.chance(0.5) {
		sep = "_"
	}
	return prefix + stamp.Format("20060102") + sep + stamp.Format("150405") + ext
}
