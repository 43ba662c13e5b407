package bandit

// setPerformance seeds a strategy's rolling performance record for tests.
func (a *Adaptive) setPerformance(name string, rewards []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.perf[name] = rewards
}
