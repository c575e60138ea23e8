package chat

import (
	"errors"
	"io"
	"strings"
	"time"
)

// Fallback is the answer given when a query was rejected by the token budget
// or produced no fragments at all.
const Fallback = "Max query length exceeded!"

// Result is a fully drained stream.
type Result struct {
	Text      string
	Fragments int
}

// Answer is the user-visible text: the concatenated fragments, or Fallback
// when there were none.
func (r Result) Answer() string {
	if r.Fragments == 0 {
		return Fallback
	}
	return r.Text
}

// Drain reads stream to the end and concatenates its fragments. The stream is
// always closed on return.
func Drain(stream *FragmentStream) (Result, error) { return DrainFunc(stream, nil) }

// DrainFunc is Drain with a callback invoked for every fragment as it arrives.
func DrainFunc(stream *FragmentStream, fn func(fragment string)) (Result, error) {
	defer stream.Close()
	var b strings.Builder
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return Result{Text: b.String(), Fragments: stream.Count()}, nil
		}
		if err != nil {
			return Result{Text: b.String(), Fragments: stream.Count()}, err
		}
		if fn != nil {
			fn(frag)
		}
		b.WriteString(frag)
	}
}

// Benchmark summarises one timed query.
type Benchmark struct {
	Response        string
	Tokens          int
	TotalTime       float64 // seconds
	TokensPerSecond float64
}

// NewBenchmark computes the throughput figures. A zero or negative duration
// reports zero tokens per second rather than an infinite rate.
func NewBenchmark(response string, tokens int, elapsed time.Duration) Benchmark {
	total := elapsed.Seconds()
	b := Benchmark{Response: response, Tokens: tokens, TotalTime: total}
	if total > 0 {
		b.TokensPerSecond = float64(tokens) / total
	}
	return b
}

// Bench times start plus a full drain of the stream it returns. Tokens counts
// the fragments drained. A rejected query yields Fallback with zero tokens.
func Bench(start func() (*FragmentStream, error)) (Benchmark, error) {
	t0 := time.Now()
	stream, err := start()
	if errors.Is(err, ErrRejected) {
		return NewBenchmark(Fallback, 0, time.Since(t0)), nil
	}
	if err != nil {
		return Benchmark{}, err
	}
	res, err := Drain(stream)
	if err != nil {
		return Benchmark{}, err
	}
	return NewBenchmark(res.Text, res.Fragments, time.Since(t0)), nil
}
