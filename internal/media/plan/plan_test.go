package plan

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

func newPlanner(seed uint64) *Planner {
	return NewWithSource(rand.NewPCG(seed, seed*7+1), func() time.Time { return fixedNow })
}

func TestPlanImage_Ranges(t *testing.T) {
	p := newPlanner(1)
	const w, h = 1080, 1350
	seen := map[string]int{}

	for i := 0; i < 2000; i++ {
		plan := p.PlanImage(w, h)

		if plan.Rotate {
			seen["rotate"]++
			assert.GreaterOrEqual(t, plan.Angle, -0.5)
			assert.LessOrEqual(t, plan.Angle, 0.5)
		}
		if plan.Crop {
			seen["crop"]++
			require.GreaterOrEqual(t, plan.CropPercent, 0.005)
			require.LessOrEqual(t, plan.CropPercent, 0.01)
			r := plan.CropRect
			maxX := int(float64(w) * plan.CropPercent)
			maxY := int(float64(h) * plan.CropPercent)
			assert.LessOrEqual(t, r.Min.X, maxX)
			assert.LessOrEqual(t, r.Min.Y, maxY)
			assert.GreaterOrEqual(t, r.Max.X, w-maxX)
			assert.GreaterOrEqual(t, r.Max.Y, h-maxY)
			assert.LessOrEqual(t, r.Max.X, w)
			assert.LessOrEqual(t, r.Max.Y, h)
		}
		if plan.Brighten {
			seen["brightness"]++
			assert.InDelta(t, 1.0, plan.Brightness, 0.03)
		}
		if plan.Contrast {
			seen["contrast"]++
			assert.InDelta(t, 1.0, plan.ContrastF, 0.02)
		}
		if plan.Colorize {
			seen["color"]++
			assert.InDelta(t, 1.0, plan.Saturation, 0.02)
		}
		if plan.Noise {
			seen["noise"]++
			assert.GreaterOrEqual(t, plan.NoiseSigma, 0.5)
			assert.LessOrEqual(t, plan.NoiseSigma, 2.0)
		}
		if plan.GPS != nil {
			seen["gps"]++
			assert.LessOrEqual(t, plan.GPS.Latitude, 60.0)
			assert.GreaterOrEqual(t, plan.GPS.Latitude, -60.0)
			assert.LessOrEqual(t, plan.GPS.Longitude, 160.0)
			assert.GreaterOrEqual(t, plan.GPS.Longitude, -160.0)
		}

		age := fixedNow.Sub(plan.TakenAt)
		assert.Zero(t, age%day)
		assert.GreaterOrEqual(t, age, day)
		assert.LessOrEqual(t, age, 120*day)

		assert.Equal(t, "Apple", plan.Identity.Make)
		assert.Regexp(t, `^iPhone 1[1-5] Pro$`, plan.Identity.Model)
		assert.Regexp(t, `^iOS 1[4-7]\.[0-6]$`, plan.Identity.Software)
		assert.Regexp(t, FilenamePattern(KindPhoto), plan.Filename)
	}

	// Observed frequencies sit near their configured probabilities.
	for step, prob := range map[string]float64{
		"rotate": 0.6, "crop": 0.7, "brightness": 0.6, "contrast": 0.5,
		"color": 0.5, "noise": 0.4, "gps": 0.3,
	} {
		assert.InDelta(t, prob, float64(seen[step])/2000, 0.06, step)
	}
}

func TestPlanImage_Independent(t *testing.T) {
	p := newPlanner(3)
	a := p.PlanImage(640, 480)
	differs := false
	for i := 0; i < 20 && !differs; i++ {
		b := p.PlanImage(640, 480)
		differs = a.Filename != b.Filename || a.TakenAt != b.TakenAt || a.Angle != b.Angle
	}
	assert.True(t, differs)
}

func TestPlanVideo_CropInsideAndEven(t *testing.T) {
	p := newPlanner(5)
	sizes := [][2]int{{1080, 1920}, {1920, 1080}, {720, 720}, {641, 479}}
	for _, size := range sizes {
		w, h := size[0], size[1]
		for i := 0; i < 300; i++ {
			plan := p.PlanVideo(w, h)
			r := plan.Crop
			require.True(t, r.Min.X >= 0 && r.Min.Y >= 0 && r.Max.X <= w && r.Max.Y <= h, "%v in %dx%d", r, w, h)
			assert.Zero(t, r.Dx()%2)
			assert.Zero(t, r.Dy()%2)
			assert.GreaterOrEqual(t, float64(r.Dx()), float64(w)*0.98-2)
			assert.GreaterOrEqual(t, float64(r.Dy()), float64(h)*0.98-2)

			assert.GreaterOrEqual(t, plan.Speed, 0.997)
			assert.LessOrEqual(t, plan.Speed, 1.003)
			assert.GreaterOrEqual(t, plan.Strength, 0.002)
			assert.LessOrEqual(t, plan.Strength, 0.008)
			assert.True(t, plan.Noise == 0 || (plan.Noise >= 1 && plan.Noise <= 3))

			age := fixedNow.Sub(plan.CreatedAt)
			assert.GreaterOrEqual(t, age, day)
			assert.LessOrEqual(t, age, 120*day)
			assert.Regexp(t, FilenamePattern(KindVideo), plan.Filename)
		}
	}
}

func TestPlanVideo_VerticalCropsLessHorizontally(t *testing.T) {
	p := newPlanner(11)
	const w, h = 1080, 1920
	for i := 0; i < 500; i++ {
		r := p.PlanVideo(w, h).Crop
		assert.LessOrEqual(t, w-r.Dx(), int(float64(w)*0.01)+2)
	}
}

func TestLook_NoneWeighted(t *testing.T) {
	p := newPlanner(9)
	counts := map[Look]int{}
	const n = 14000
	for i := 0; i < n; i++ {
		counts[p.PlanVideo(1280, 720).Look]++
	}
	require.Len(t, counts, len(looks))
	// none: 5/14, every other grade: 1/14.
	assert.InDelta(t, 5.0/14, float64(counts[LookNone])/n, 0.02)
	assert.InDelta(t, 1.0/14, float64(counts[LookWarmer])/n, 0.015)
}

func TestFilename_Patterns(t *testing.T) {
	p := newPlanner(21)
	counter := regexp.MustCompile(`_\d{4}\.`)
	var counters, stamped, underscored int
	for i := 0; i < 3000; i++ {
		name := p.Filename(KindVideo)
		require.Regexp(t, FilenamePattern(KindVideo), name)
		require.True(t, strings.HasSuffix(name, ".MP4"))
		if counter.MatchString(name) {
			counters++
			continue
		}
		stamped++
		digits := name[strings.Index(name, "_")+1 : len(name)-len(".MP4")]
		if strings.Contains(digits, "_") {
			underscored++
			digits = strings.Replace(digits, "_", "", 1)
		}
		stamp, err := time.Parse("20060102150405", digits)
		require.NoError(t, err)
		assert.False(t, stamp.After(fixedNow), name)
		assert.LessOrEqual(t, fixedNow.Sub(stamp), 91*day, name)
	}
	assert.InDelta(t, 0.7, float64(counters)/3000, 0.04)
	assert.InDelta(t, 0.5, float64(underscored)/float64(stamped), 0.07)

	photo := p.Filename(KindPhoto)
	assert.Regexp(t, FilenamePattern(KindPhoto), photo)
	assert.True(t, strings.HasSuffix(photo, ".JPG"))
}
