package ghost

// runningMean is a time weighted moving average. Samples older than the
// window fade out exponentially.
type runningMean struct {
	window float64
	value  float64
	primed bool
}

func (m *runningMean) push(x, dt float64) {
	if !m.primed {
		m.value = x
		m.primed = true
		return
	}
	alpha := 1.0
	if m.window > 0 {
		alpha = clamp(dt/m.window, 0, 1)
	}
	m.value += (x - m.value) * alpha
}

func (m *runningMean) avg() float64 {
	return m.value
}
