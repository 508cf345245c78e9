package sensor

import "sync"

// Smoother applies a per-device, per-metric moving average to raw
// samples. Smoothing state is keyed by device ID so readings from
// different probes never blend.
//
// All methods are thread-safe.
type Smoother struct {
	window int
	mu     sync.Mutex
	series map[string]map[string][]float64 // deviceID -> metric -> recent values
}

// NewSmoother creates a Smoother with the given window size.
// A window of 1 disables smoothing.
func NewSmoother(window int) *Smoother {
	if window < 1 {
		window = 1
	}
	return &Smoother{
		window: window,
		series: make(map[string]map[string][]float64),
	}
}

// Smooth records the raw metrics for the device and returns the moving
// average over the last window samples of each metric.
func (s *Smoother) Smooth(deviceID string, raw map[string]float64) map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	byMetric, ok := s.series[deviceID]
	if !ok {
		byMetric = make(map[string][]float64)
		s.series[deviceID] = byMetric
	}

	out := make(map[string]float64, len(raw))
	for metric, value := range raw {
		values := append(byMetric[metric], value)
		if len(values) > s.window {
			values = values[len(values)-s.window:]
		}
		byMetric[metric] = values

		var sum float64
		for _, v := range values {
			sum += v
		}
		out[metric] = sum / float64(len(values))
	}
	return out
}

// Reset discards smoothing state for a device, e.g. after recalibration.
func (s *Smoother) Reset(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.series, deviceID)
}
