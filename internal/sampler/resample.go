package sampler

import (
	"github.com/Dicklesworthstone/teledash/internal/model"
)

// Resample groups samples in [start, end] into ceil(span/maxPoints)-second
// buckets. Each bucket averages the values that are present and takes the
// newest timestamp; totals and names take the last seen value. A bucket
// size of one reports mode "raw", anything larger "avg_bucket".
func Resample(samples []model.Sample, start, end int64, maxPoints int) ([]model.Sample, int, string) {
	maxPoints = max(1, maxPoints)
	span := max(1, end-start+1)
	bucket := max(1, int((span+int64(maxPoints)-1)/int64(maxPoints)))
	mode := model.DefaultMode
	if bucket > 1 {
		mode = "avg_bucket"
	}

	var out []model.Sample
	var acc bucketAcc
	cur := int64(-1)
	for _, s := range samples {
		if s.TS < start || s.TS > end {
			continue
		}
		idx := (s.TS - start) / int64(bucket)
		if idx != cur && acc.n > 0 {
			out = append(out, acc.sample())
			acc = bucketAcc{}
		}
		cur = idx
		acc.add(s)
	}
	if acc.n > 0 {
		out = append(out, acc.sample())
	}
	return out, bucket, mode
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(p *float64) {
	if p != nil {
		m.sum += *p
		m.n++
	}
}

func (m mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	return model.Float(m.sum / float64(m.n))
}

type bucketAcc struct {
	n                             int
	ts                            int64
	cpu, cpuTemp, memPct, memUsed mean
	gpu, gpuTemp                  mean
	total                         *uint64
	name                          *string
}

func (a *bucketAcc) add(s model.Sample) {
	a.n++
	a.ts = max(a.ts, s.TS)
	a.cpu.add(s.CPU.Usage)
	a.cpuTemp.add(s.CPU.TempC)
	a.memPct.add(s.Memory.Percent)
	if s.Memory.UsedBytes != nil {
		a.memUsed.add(model.Float(float64(*s.Memory.UsedBytes)))
	}
	if s.Memory.TotalBytes != nil {
		a.total = s.Memory.TotalBytes
	}
	a.gpu.add(s.GPU.Usage)
	a.gpuTemp.add(s.GPU.TempC)
	if s.GPU.Name != nil {
		a.name = s.GPU.Name
	}
}

func (a *bucketAcc) sample() model.Sample {
	s := model.Sample{
		TS:     a.ts,
		CPU:    model.CPU{Usage: a.cpu.value(), TempC: a.cpuTemp.value()},
		Memory: model.Memory{Percent: a.memPct.value(), TotalBytes: a.total},
		GPU:    model.GPU{Usage: a.gpu.value(), TempC: a.gpuTemp.value(), Name: a.name},
	}
	if used := a.memUsed.value(); used != nil {
		s.Memory.UsedBytes = model.Bytes(uint64(*used))
	}
	return s
}
