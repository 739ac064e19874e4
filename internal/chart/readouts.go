package chart

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Dicklesworthstone/teledash/internal/model"
)

// Readouts are the textual slots next to the charts. Every field is
// already formatted; unavailable readings carry the sentinel.
type Readouts struct {
	CPU       string `json:"cpu"`
	Mem       string `json:"mem"`
	MemDetail string `json:"mem_detail"`
	GPU       string `json:"gpu"`
	CPUTemp   string `json:"cpu_temp"`
	GPUTemp   string `json:"gpu_temp"`
	GPUName   string `json:"gpu_name,omitempty"`
	TS        int64  `json:"ts,omitempty"`
}

// BuildReadouts formats s; a nil sample yields sentinels everywhere.
func BuildReadouts(s *model.Sample) Readouts {
	var smp model.Sample
	if s != nil {
		smp = *s
	}
	r := Readouts{
		CPU:       model.FormatPercent(smp.Value(model.CPUUsage)),
		Mem:       model.FormatPercent(smp.Value(model.MemPercent)),
		MemDetail: model.FormatMemory(smp.Memory),
		GPU:       model.FormatPercent(smp.Value(model.GPUUsage)),
		CPUTemp:   model.FormatCelsius(smp.Value(model.CPUTemp)),
		GPUTemp:   model.FormatCelsius(smp.Value(model.GPUTemp)),
		TS:        smp.TS,
	}
	if smp.GPU.Name != nil {
		r.GPUName = *smp.GPU.Name
	}
	return r
}

// MetaLine is the free-text summary of what is on screen and where it
// came from.
func MetaLine(v View, points int) string {
	mode := v.Meta.Mode
	if mode == "" {
		mode = model.DefaultMode
	}
	bucket := v.Meta.BucketSeconds
	if bucket < 1 {
		bucket = 1
	}
	parts := []string{
		"range " + RangeLabel(v.RangeSeconds),
		mode,
		fmt.Sprintf("bucket %ds", bucket),
		fmt.Sprintf("%d pts", points),
		"every " + v.SamplingInterval.String(),
	}
	if v.Status == nil {
		parts = append(parts, "status n/a")
	} else {
		parts = append(parts, "cpu temp "+model.DescribeCPUTemp(v.Status.CPUTemp))
		var gpu *model.GPUStatus
		if v.Status.Sampling != nil {
			gpu = v.Status.Sampling.GPU
		}
		parts = append(parts, model.DescribeGPU(gpu))
	}
	return strings.Join(parts, " · ")
}

// RangeLabel renders a window length compactly: 300 -> "5m", 86400 -> "1d".
func RangeLabel(seconds int) string {
	d := time.Duration(seconds) * time.Second
	switch {
	case seconds <= 0:
		return "?"
	case seconds%86400 == 0:
		return strconv.Itoa(seconds/86400) + "d"
	case seconds%3600 == 0:
		return strconv.Itoa(seconds/3600) + "h"
	case seconds%60 == 0:
		return strconv.Itoa(seconds/60) + "m"
	default:
		return d.String()
	}
}

func unitFormatter(unit string) func(float64) string {
	return func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64) + unit
	}
}

// Ranges are the selectable display windows, in seconds.
var Ranges = []int{300, 900, 3600, 6 * 3600, 86400, 7 * 86400, 30 * 86400}

// RangeIndex returns the position of seconds in Ranges, or -1.
func RangeIndex(seconds int) int {
	for i, r := range Ranges {
		if r == seconds {
			return i
		}
	}
	return -1
}
