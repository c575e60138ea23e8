// Package llama runs a GGUF model in-process through go-llama.cpp.
//
// The real engine is compiled with `-tags=llama` (CGO, links libllama). Without
// the tag, New fails fast with an engine-unavailable error so default builds
// and CI stay CGO-free.
package llama

// Config holds load-time and sampling options.
type Config struct {
	ModelPath   string
	ContextSize int
	Threads     int
	GPULayers   int
	// Sampling; zero values fall back to go-llama.cpp defaults.
	Temperature   float32
	TopP          float32
	TopK          int
	RepeatPenalty float32
	Seed          int
}

// Option adjusts a Config.
type Option func(*Config)

func WithThreads(n int) Option           { return func(c *Config) { c.Threads = n } }
func WithGPULayers(n int) Option         { return func(c *Config) { c.GPULayers = n } }
func WithContextSize(n int) Option       { return func(c *Config) { c.ContextSize = n } }
func WithSeed(seed int) Option           { return func(c *Config) { c.Seed = seed } }
func WithTemperature(t float32) Option   { return func(c *Config) { c.Temperature = t } }
func WithTopP(p float32) Option          { return func(c *Config) { c.TopP = p } }
func WithTopK(k int) Option              { return func(c *Config) { c.TopK = k } }
func WithRepeatPenalty(p float32) Option { return func(c *Config) { c.RepeatPenalty = p } }

func newConfig(modelPath string, opts ...Option) Config {
	c := Config{ModelPath: modelPath}
	for _, o := range opts {
		o(&c)
	}
	return c
}
