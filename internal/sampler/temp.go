package sampler

import (
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

const (
	methodPsutil = "psutil"
	minTempScore = 80
)

type tempCandidate struct {
	chip, label string
	tempC       float64
	score       int
}

// scoreSensor ranks how likely a chip/label pair is the CPU package sensor.
func scoreSensor(chip, label string) int {
	chip, label = strings.ToLower(chip), strings.ToLower(label)
	has := func(s string, keys ...string) bool {
		for _, k := range keys {
			if strings.Contains(s, k) {
				return true
			}
		}
		return false
	}

	score := 0
	switch {
	case has(chip, "coretemp", "k10temp", "cpu_thermal", "zenpower", "x86_pkg_temp"):
		score += 100
	case has(chip, "cpu"):
		score += 60
	}
	switch {
	case has(label, "package", "tctl", "tdie", "cpu"):
		score += 60
	case has(label, "core"):
		score += 40
	}
	if has(chip, "nvme", "amdgpu", "gpu") || has(label, "nvme", "amdgpu", "gpu") {
		score -= 200
	}
	if has(chip, "pch", "battery", "iwlwifi") || has(label, "pch", "battery", "iwlwifi") {
		score -= 80
	}
	return score
}

// splitSensorKey turns gopsutil's "coretemp_package_id_0" into chip and label.
func splitSensorKey(key string) (string, string) {
	chip, label, ok := strings.Cut(key, "_")
	if !ok {
		return key, key
	}
	return chip, label
}

// pickCPUTemp returns the best plausible CPU sensor scoring at least
// minTempScore. Ties go to the hotter reading.
func pickCPUTemp(stats []host.TemperatureStat) (tempCandidate, bool) {
	var cands []tempCandidate
	for _, st := range stats {
		if st.Temperature < 0 || st.Temperature > 125 {
			continue
		}
		chip, label := splitSensorKey(st.SensorKey)
		cands = append(cands, tempCandidate{
			chip:  chip,
			label: label,
			tempC: st.Temperature,
			score: scoreSensor(chip, label),
		})
	}
	if len(cands) == 0 {
		return tempCandidate{}, false
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].tempC > cands[j].tempC
	})
	best := cands[0]
	return best, best.score >= minTempScore
}
