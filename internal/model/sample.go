package model

import "math"

// CPU aggregates processor usage and package temperature. Pointer fields
// decode from JSON null (or a missing key) as nil, meaning unavailable.
type CPU struct {
	Usage *float64 `json:"usage"` // percent 0-100
	TempC *float64 `json:"temp_c"`
}

// Memory captures RAM usage. Bytes are kept exact for formatting.
type Memory struct {
	Percent    *float64 `json:"percent"`
	UsedBytes  *uint64  `json:"used_bytes"`
	TotalBytes *uint64  `json:"total_bytes"`
}

// GPU holds a single device snapshot.
type GPU struct {
	Usage *float64 `json:"usage"` // percent
	TempC *float64 `json:"temp_c"`
	Name  *string  `json:"name,omitempty"`
}

// Sample is one timestamped reading exchanged between the metrics service,
// the series buffer and the renderers. A missing sub-object decodes to its
// zero value, which reads as "all fields unavailable".
type Sample struct {
	TS     int64  `json:"ts"` // seconds since epoch
	CPU    CPU    `json:"cpu"`
	Memory Memory `json:"memory"`
	GPU    GPU    `json:"gpu"`
}

// Metric selects one plottable numeric field of a Sample.
type Metric int

const (
	CPUUsage Metric = iota
	MemPercent
	GPUUsage
	CPUTemp
	GPUTemp
)

func (m Metric) String() string {
	switch m {
	case CPUUsage:
		return "cpu"
	case MemPercent:
		return "mem"
	case GPUUsage:
		return "gpu"
	case CPUTemp:
		return "cpu_temp"
	case GPUTemp:
		return "gpu_temp"
	default:
		return "unknown"
	}
}

// Value returns the metric, or NaN when it is absent or not finite.
func (s Sample) Value(m Metric) float64 {
	switch m {
	case CPUUsage:
		return floatOrNaN(s.CPU.Usage)
	case MemPercent:
		return s.Memory.Pct()
	case GPUUsage:
		return floatOrNaN(s.GPU.Usage)
	case CPUTemp:
		return floatOrNaN(s.CPU.TempC)
	case GPUTemp:
		return floatOrNaN(s.GPU.TempC)
	default:
		return math.NaN()
	}
}

// Pct returns the reported memory percent, falling back to used/total when
// the service omitted it.
func (m Memory) Pct() float64 {
	if v := floatOrNaN(m.Percent); !math.IsNaN(v) {
		return v
	}
	if m.UsedBytes == nil || m.TotalBytes == nil || *m.TotalBytes == 0 {
		return math.NaN()
	}
	return float64(*m.UsedBytes) * 100 / float64(*m.TotalBytes)
}

// Values extracts one metric across samples, keeping missing points as NaN
// so that index positions stay aligned with timestamps.
func Values(samples []Sample, m Metric) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value(m)
	}
	return out
}

// Float returns a pointer to v, for building samples in code.
func Float(v float64) *float64 { return &v }

// Bytes returns a pointer to v.
func Bytes(v uint64) *uint64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

func floatOrNaN(p *float64) float64 {
	if p == nil || math.IsInf(*p, 0) {
		return math.NaN()
	}
	return *p
}
