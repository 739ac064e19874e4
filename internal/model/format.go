package model

import (
	"fmt"
	"math"
)

// Sentinel is rendered in place of any unavailable reading.
const Sentinel = "--"

var byteUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatPercent renders v as "12.3%", or "--%" when unavailable.
func FormatPercent(v float64) string {
	if math.IsNaN(v) {
		return Sentinel + "%"
	}
	return fmt.Sprintf("%.1f%%", v)
}

// FormatCelsius renders v as "45.0°C", or "--°C" when unavailable.
func FormatCelsius(v float64) string {
	if math.IsNaN(v) {
		return Sentinel + "°C"
	}
	return fmt.Sprintf("%.1f°C", v)
}

// FormatBytes renders b with binary multiples and decimal-style labels,
// matching what the dashboard has always shown (1073741824 -> "1.0 GB").
func FormatBytes(b uint64) string {
	if b < 1024 {
		return fmt.Sprintf("%d B", b)
	}
	v := float64(b)
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", v, byteUnits[unit])
}

// FormatMemory renders "used / total", or the sentinel when either side
// is unavailable.
func FormatMemory(m Memory) string {
	if m.UsedBytes == nil || m.TotalBytes == nil {
		return Sentinel
	}
	return FormatBytes(*m.UsedBytes) + " / " + FormatBytes(*m.TotalBytes)
}

// DescribeCPUTemp summarizes where the CPU temperature comes from.
func DescribeCPUTemp(st *CPUTempStatus) string {
	if st == nil || st.Method == "" {
		return "n/a"
	}
	if st.Method == "hwmon" && st.Source != nil {
		switch {
		case st.Source.Chip != "" && st.Source.Label != "":
			return fmt.Sprintf("hwmon %s/%s", st.Source.Chip, st.Source.Label)
		case st.Source.Chip != "":
			return "hwmon " + st.Source.Chip
		}
	}
	return st.Method
}

// DescribeGPU summarizes the sampler's GPU reader.
func DescribeGPU(st *GPUStatus) string {
	switch st.State() {
	case GPUActive:
		return "gpu " + st.Mode
	case GPUIdle:
		return "gpu idle"
	case GPUDisabled:
		return "gpu disabled"
	case GPUErrored:
		return "gpu error: " + st.LastError
	default:
		return "gpu n/a"
	}
}
