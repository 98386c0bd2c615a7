// Package plan draws the randomized perturbations applied to one media file.
// Every call re-rolls independently; nothing is shared between plans.
package plan

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"image"
	mrand "math/rand/v2"
	"sync"
	"time"

	"repurposer/internal/media/exif"
)

const day = 24 * time.Hour

// Identity is the synthetic capture device.
type Identity struct {
	Make     string
	Model    string
	Software string
}

var deviceModels = []string{"11", "12", "13", "14", "15"}

// ImagePlan lists the still-image steps in the order they are applied.
type ImagePlan struct {
	Rotate      bool
	Angle       float64
	Crop        bool
	CropRect    image.Rectangle
	CropPercent float64
	Brighten    bool
	Brightness  float64
	Contrast    bool
	ContrastF   float64
	Colorize    bool
	Saturation  float64
	Noise       bool
	NoiseSigma  float64
	NoiseSeed   uint64

	Identity Identity
	TakenAt  time.Time
	GPS      *exif.GPS
	Filename string
}

// Capture returns the EXIF record described by the plan.
func (p ImagePlan) Capture() exif.Capture {
	return exif.Capture{
		Make:     p.Identity.Make,
		Model:    p.Identity.Model,
		Software: p.Identity.Software,
		TakenAt:  p.TakenAt,
		GPS:      p.GPS,
	}
}

// Steps names the pixel operations selected, for logs and status text.
func (p ImagePlan) Steps() []string {
	var steps []string
	if p.Rotate {
		steps = append(steps, fmt.Sprintf("rotate %.2f°", p.Angle))
	}
	if p.Crop {
		steps = append(steps, fmt.Sprintf("crop %.2f%%", p.CropPercent*100))
	}
	if p.Brighten {
		steps = append(steps, fmt.Sprintf("brightness %.3f", p.Brightness))
	}
	if p.Contrast {
		steps = append(steps, fmt.Sprintf("contrast %.3f", p.ContrastF))
	}
	if p.Colorize {
		steps = append(steps, fmt.Sprintf("color %.3f", p.Saturation))
	}
	if p.Noise {
		steps = append(steps, fmt.Sprintf("noise σ=%.2f", p.NoiseSigma))
	}
	if p.GPS != nil {
		steps = append(steps, "geotag")
	}
	return steps
}

// Look is the colour grade applied to a video.
type Look string

const (
	LookNone         Look = "none"
	LookWarmer       Look = "warmer"
	LookCooler       Look = "cooler"
	LookBrighter     Look = "brighter"
	LookDarker       Look = "darker"
	LookMoreContrast Look = "more_contrast"
	LookLessContrast Look = "less_contrast"
	LookSlightRed    Look = "slight_red"
	LookSlightBlue   Look = "slight_blue"
	LookSlightGreen  Look = "slight_green"
)

var looks = []Look{
	LookWarmer, LookCooler, LookBrighter, LookDarker, LookMoreContrast,
	LookLessContrast, LookSlightRed, LookSlightBlue, LookSlightGreen, LookNone,
}

// noneWeight is how much likelier LookNone is than any single grade.
const noneWeight = 5

// VideoPlan describes the filter chain and container stamp for one video.
type VideoPlan struct {
	Width    int
	Height   int
	Crop     image.Rectangle
	Look     Look
	Strength float64
	Noise    int
	Speed    float64

	Identity  Identity
	CreatedAt time.Time
	Filename  string
}

// Planner is safe for concurrent use.
type Planner struct {
	mu  sync.Mutex
	rng *mrand.Rand
	now func() time.Time
}

// New seeds a planner from the operating system's random source.
func New() *Planner {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		binary.LittleEndian.PutUint64(seed[:], uint64(time.Now().UnixNano()))
	}
	return NewWithSource(mrand.NewChaCha8(seed), time.Now)
}

func NewWithSource(src mrand.Source, now func() time.Time) *Planner {
	return &Planner{rng: mrand.New(src), now: now}
}

func (p *Planner) uniform(lo, hi float64) float64 {
	return lo + p.rng.Float64()*(hi-lo)
}

// intIn returns an integer in [lo, hi].
func (p *Planner) intIn(lo, hi int) int {
	return lo + p.rng.IntN(hi-lo+1)
}

func (p *Planner) chance(prob float64) bool {
	return p.rng.Float64() < prob
}

// PlanImage rolls a plan for a w×h still image.
func (p *Planner) PlanImage(w, h int) ImagePlan {
	p.mu.Lock()
	defer p.mu.Unlock()

	var plan ImagePlan

	if p.chance(0.6) {
		plan.Rotate = true
		plan.Angle = p.uniform(-0.5, 0.5)
	}

	if p.chance(0.7) {
		plan.Crop = true
		plan.CropPercent = p.uniform(0.005, 0.01)
		maxX := int(float64(w) * plan.CropPercent)
		maxY := int(float64(h) * plan.CropPercent)
		left := p.intIn(0, maxX)
		top := p.intIn(0, maxY)
		right := w - p.intIn(0, maxX)
		bottom := h - p.intIn(0, maxY)
		plan.CropRect = image.Rect(left, top, right, bottom)
	}

	if p.chance(0.6) {
		plan.Brighten = true
		plan.Brightness = p.uniform(0.97, 1.03)
	}
	if p.chance(0.5) {
		plan.Contrast = true
		plan.ContrastF = p.uniform(0.98, 1.02)
	}
	if p.chance(0.5) {
		plan.Colorize = true
		plan.Saturation = p.uniform(0.98, 1.02)
	}
	if p.chance(0.4) {
		plan.Noise = true
		plan.NoiseSigma = clampFloat(p.uniform(0.5, 2.0), 0.5, 2.0)
		plan.NoiseSeed = p.rng.Uint64()
	}

	now := p.now()
	plan.TakenAt = now.Add(-time.Duration(p.intIn(1, 120)) * day)
	plan.Identity = p.identity()
	if p.chance(0.3) {
		plan.GPS = &exif.GPS{
			Latitude:  p.uniform(-60, 60),
			Longitude: p.uniform(-160, 160),
		}
	}
	plan.Filename = p.filename(KindPhoto, now)
	return plan
}

// PlanVideo rolls a plan for a w×h video.
func (p *Planner) PlanVideo(w, h int) VideoPlan {
	p.mu.Lock()
	defer p.mu.Unlock()

	plan := VideoPlan{Width: w, Height: h}
	plan.Strength = p.uniform(0.002, 0.008)
	plan.Speed = p.uniform(0.997, 1.003)
	plan.Look = p.look()
	if p.chance(0.5) {
		plan.Noise = p.intIn(1, 3)
	}
	plan.Crop = p.videoCrop(w, h)

	now := p.now()
	plan.CreatedAt = now.Add(-time.Duration(p.intIn(1, 120)) * day)
	plan.Identity = p.identity()
	plan.Filename = p.filename(KindVideo, now)
	return plan
}

func (p *Planner) look() Look {
	total := len(looks) - 1 + noneWeight
	n := p.rng.IntN(total)
	if n < len(looks)-1 {
		return looks[n]
	}
	return LookNone
}

// videoCrop trims at most 1% per axis, half as much along the short side of
// clearly vertical or horizontal footage. The result has even dimensions.
func (p *Planner) videoCrop(w, h int) image.Rectangle {
	const maxCrop = 0.01
	maxX, maxY := maxCrop, maxCrop
	fw, fh := float64(w), float64(h)
	switch {
	case w < h && fw/fh < 0.75:
		maxX = maxCrop / 2
	case h < w && fh/fw < 0.75:
		maxY = maxCrop / 2
	}

	left := int(fw * p.uniform(0, maxX))
	right := int(fw * (1 - p.uniform(0, maxX)))
	top := int(fh * p.uniform(0, maxY))
	bottom := int(fh * (1 - p.uniform(0, maxY)))

	cw, ch := right-left, bottom-top
	cw -= cw % 2
	ch -= ch % 2
	if cw < 2 || ch < 2 {
		return image.Rect(0, 0, w-w%2, h-h%2)
	}
	return image.Rect(left, top, left+cw, top+ch)
}

func (p *Planner) identity() Identity {
	return Identity{
		Make:     "Apple",
		Model:    fmt.Sprintf("iPhone %s Pro", deviceModels[p.rng.IntN(len(deviceModels))]),
		Software: fmt.Sprintf("iOS %d.%d", p.intIn(14, 17), p.intIn(0, 6)),
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
