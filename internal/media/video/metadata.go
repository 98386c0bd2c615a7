package video

import (
	"time"

	"repurposer/internal/media/plan"
)

// Container is the metadata block stamped into the output MP4.
type Container struct {
	CreationTime time.Time
	Filename     string
	Make         string
	Model        string
	Software     string
}

func ContainerFor(p plan.VideoPlan) Container {
	return Container{
		CreationTime: p.CreatedAt,
		Filename:     p.Filename,
		Make:         p.Identity.Make,
		Model:        p.Identity.Model,
		Software:     p.Identity.Software,
	}
}

// Args renders the block as ffmpeg -metadata flags. Empty fields are skipped.
func (c Container) Args() []string {
	var args []string
	add := func(key, value string) {
		if value != "" {
			args = append(args, "-metadata", key+"="+value)
		}
	}
	if !c.CreationTime.IsZero() {
		add("creation_time", c.CreationTime.UTC().Format(time.RFC3339))
	}
	add("filename", c.Filename)
	add("make", c.Make)
	add("model", c.Model)
	add("software", c.Software)
	return args
}
