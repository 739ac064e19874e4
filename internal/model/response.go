package model

// DefaultMode is assumed when the service omits the history mode.
const DefaultMode = "raw"

// HistoryResponse is the envelope returned by metrics/history.
type HistoryResponse struct {
	StartTS       int64    `json:"start_ts,omitempty"`
	EndTS         int64    `json:"end_ts,omitempty"`
	Seconds       int      `json:"seconds,omitempty"`
	MaxPoints     int      `json:"max_points"`
	Mode          string   `json:"mode"`
	BucketSeconds int      `json:"bucket_seconds"`
	Count         int      `json:"count,omitempty"`
	Samples       []Sample `json:"samples"`
}

// Normalize fills defaults the service may leave out.
func (h *HistoryResponse) Normalize() {
	if h.Mode == "" {
		h.Mode = DefaultMode
	}
	if h.BucketSeconds < 1 {
		h.BucketSeconds = 1
	}
}

// LatestResponse is the envelope returned by metrics/latest. Sample is nil
// when the service has not recorded anything yet.
type LatestResponse struct {
	Sample *Sample `json:"sample"`
}

// StatusResponse describes sampler and sensor capabilities.
type StatusResponse struct {
	Sampling *SamplingStatus `json:"sampling"`
	CPUTemp  *CPUTempStatus  `json:"cpu_temp"`
}

// SamplingStatus mirrors the service's sampler configuration.
type SamplingStatus struct {
	IntervalSeconds int        `json:"sampling_interval_seconds"`
	RetentionDays   int        `json:"retention_days,omitempty"`
	GPU             *GPUStatus `json:"gpu,omitempty"`
}

// GPUStatus reports which backend (if any) the sampler reads the GPU from.
type GPUStatus struct {
	Enabled     bool    `json:"enabled"`
	Index       int     `json:"gpu_index"`
	Mode        string  `json:"mode"`
	NextRetryAt float64 `json:"next_retry_at,omitempty"`
	FailCount   int     `json:"fail_count,omitempty"`
	LastError   string  `json:"last_error"`
}

// GPUState is the derived capability of the sampler's GPU reader.
type GPUState int

const (
	GPUUnknown GPUState = iota
	GPUActive
	GPUIdle
	GPUDisabled
	GPUErrored
)

func (g GPUState) String() string {
	switch g {
	case GPUActive:
		return "active"
	case GPUIdle:
		return "idle"
	case GPUDisabled:
		return "disabled"
	case GPUErrored:
		return "error"
	default:
		return "unknown"
	}
}

// State folds the enabled/mode/last_error fields into one GPUState.
func (g *GPUStatus) State() GPUState {
	switch {
	case g == nil:
		return GPUUnknown
	case !g.Enabled:
		return GPUDisabled
	case g.Mode != "":
		return GPUActive
	case g.LastError != "":
		return GPUErrored
	default:
		return GPUIdle
	}
}

// CPUTempStatus reports how the service picked its CPU temperature source.
type CPUTempStatus struct {
	Method    string      `json:"method"` // hwmon, sysfs, psutil, thermal_zone
	TempC     *float64    `json:"temp_c"`
	Source    *TempSource `json:"source,omitempty"`
	SysfsPath string      `json:"sysfs_path,omitempty"`
}

// TempSource identifies an hwmon chip/label pair.
type TempSource struct {
	Chip      string `json:"chip"`
	Label     string `json:"label"`
	InputPath string `json:"input_path,omitempty"`
	Score     int    `json:"score,omitempty"`
}
