package video

import (
	"fmt"
	"strconv"
	"strings"

	"repurposer/internal/media/plan"
)

// VideoFilters renders the -vf chain: crop, scale back to the source size,
// colour grade, noise, then the speed change. libx264 with yuv420p needs even
// dimensions, so an odd source width or height loses one pixel.
func VideoFilters(p plan.VideoPlan) string {
	r := p.Crop
	chain := []string{
		fmt.Sprintf("crop=%d:%d:%d:%d", r.Dx(), r.Dy(), r.Min.X, r.Min.Y),
		fmt.Sprintf("scale=%d:%d:flags=lanczos", p.Width-p.Width%2, p.Height-p.Height%2),
	}
	if look := LookFilter(p.Look, p.Strength); look != "" {
		chain = append(chain, look)
	}
	if p.Noise > 0 {
		chain = append(chain, fmt.Sprintf("noise=alls=%d:allf=t", p.Noise))
	}
	chain = append(chain, "setpts=PTS/"+num(p.Speed))
	return strings.Join(chain, ",")
}

// AudioFilters keeps the audio in step with the video speed change.
func AudioFilters(p plan.VideoPlan) string {
	return "atempo=" + num(p.Speed)
}

// LookFilter maps a grade and its strength to an ffmpeg filter expression.
// LookNone yields "".
func LookFilter(look plan.Look, s float64) string {
	switch look {
	case plan.LookWarmer:
		return fmt.Sprintf("eq=gamma_r=%s:gamma_b=%s", num(1-s/2), num(1+s/2))
	case plan.LookCooler:
		return fmt.Sprintf("eq=gamma_r=%s:gamma_b=%s", num(1+s/2), num(1-s/2))
	case plan.LookBrighter:
		return "eq=brightness=" + num(s/2)
	case plan.LookDarker:
		return "eq=brightness=" + num(-s/2)
	case plan.LookMoreContrast:
		return "eq=contrast=" + num(1+s/2)
	case plan.LookLessContrast:
		return "eq=contrast=" + num(1-s/2)
	case plan.LookSlightRed:
		return mixer(1, 1-s/4, 1-s/4)
	case plan.LookSlightBlue:
		return mixer(1-s/4, 1-s/4, 1)
	case plan.LookSlightGreen:
		return mixer(1-s/4, 1, 1-s/4)
	default:
		return ""
	}
}

func mixer(rr, gg, bb float64) string {
	return fmt.Sprintf("colorchannelmixer=rr=%s:rg=0:rb=0:gr=0:gg=%s:gb=0:br=0:bg=0:bb=%s", num(rr), num(gg), num(bb))
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
