package toolloop

// LoopConfig bounds the dialogue loop.
type LoopConfig struct {
	// MaxIterations caps the number of model calls in one run.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{MaxIterations: 10}
}

func (c LoopConfig) WithMaxIterations(maxIterations int) LoopConfig {
	c.MaxIterations = maxIterations
	return c
}
