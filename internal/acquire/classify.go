package acquire

import (
	"bytes"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Class is the policy outcome for acquired bytes. Rejected and
// quarantined results are not errors: the image arrived, it just does
// not look like a chapter page.
type Class int

const (
	Accepted Class = iota
	Quarantined
	Rejected
)

func (c Class) String() string {
	switch c {
	case Accepted:
		return "accepted"
	case Quarantined:
		return "quarantined"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Policy decides what happens to dubious downloads (ads, icons,
// tracking pixels) before they pollute the output sequence.
type Policy struct {
	// SkipTiny rejects anything under TinyThreshold outright.
	SkipTiny         bool
	TinyThreshold    int
	SuspectThreshold int
	MinSide          int
	MaxAspect        float64
}

func DefaultPolicy() Policy {
	return Policy{
		SkipTiny:         true,
		TinyThreshold:    15 * 1024,
		SuspectThreshold: 48 * 1024,
		MinSide:          200,
		MaxAspect:        12,
	}
}

// Classify inspects size and, for small payloads, decoded dimensions.
func (p Policy) Classify(data []byte) Class {
	if len(data) < p.TinyThreshold && p.SkipTiny {
		return Rejected
	}

	if len(data) < p.SuspectThreshold {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return Quarantined
		}
		if cfg.Width < p.MinSide || cfg.Height < p.MinSide {
			return Quarantined
		}
		if aspect(cfg.Width, cfg.Height) > p.MaxAspect {
			return Quarantined
		}
	}

	return Accepted
}

func aspect(w, h int) float64 {
	if w <= 0 || h <= 0 {
		return 0
	}
	if w > h {
		return float64(w) / float64(h)
	}
	return float64(h) / float64(w)
}
