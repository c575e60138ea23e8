package types

// Message is one conversation turn in a chat request.
type Message struct {
	// Author of the message: user, assistant or system.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	// example: What is the definition of ADHD?
	Content string `json:"content" example:"What is the definition of ADHD?"`
}

// QueryRequest is the body accepted by the /chat endpoints. Either Messages or
// the single-turn Query must be set; Messages wins when both are present.
type QueryRequest struct {
	// Ordered conversation to send to the model.
	Messages []Message `json:"messages,omitempty"`
	// Single user turn, shorthand for messages=[{role:user,content:query}].
	// example: What is the capital of Japan?
	Query string `json:"query,omitempty" example:"What is the capital of Japan?"`
}

// AnswerResponse is returned by POST /v1/chat.
type AnswerResponse struct {
	// The generated answer.
	// example: ADHD is a neurodevelopmental disorder that affects the brain's ability to focus.
	Answer string `json:"answer" example:"ADHD is a neurodevelopmental disorder that affects the brain's ability to focus."`
}

// BenchmarkResponse is returned by POST /v1/chat/benchmark.
type BenchmarkResponse struct {
	// The generated response.
	Response string `json:"response" example:"Tokyo."`
	// Number of fragments generated.
	// example: 3
	Tokens int `json:"tokens" example:"3"`
	// Wall-clock time for the whole query in seconds.
	// example: 0.42
	TotalTime float64 `json:"total_time" example:"0.42"`
	// Tokens divided by total time; 0 when the time is too small to measure.
	// example: 7.14
	TokensPerSecond float64 `json:"tokens_per_second" example:"7.14"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Smallest maximum query length the service accepts when the static prompt changes.
	// example: 64
	MinQueryLength int `json:"min_query_length" example:"64"`
	// Model context window in tokens.
	// example: 131072
	MaxContextLength int `json:"max_context_length" example:"131072"`
	// Tokens reserved for generation.
	// example: 1024
	MaxGenerationLength int `json:"max_generation_length" example:"1024"`
	// Tokens taken by the static prompt.
	// example: 52
	StaticPromptTokens int `json:"static_prompt_tokens" example:"52"`
	// Largest encoded query accepted.
	// example: 129996
	MaxQueryLength int `json:"max_query_length" example:"129996"`
	// Generations currently running.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Generations waiting for a slot.
	// example: 0
	Queued int `json:"queued" example:"0"`
	// Maximum concurrent generations; 0 means unlimited.
	// example: 4
	MaxInflight int `json:"max_inflight" example:"4"`
	// Inference engine in use.
	// example: llama
	Engine string `json:"engine,omitempty" example:"llama"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}

// Model represents a loadable model file on disk.
type Model struct {
	// Stable identifier for the model.
	// example: Llama-3.2-1B-Instruct-Q4_K_M.gguf
	ID string `json:"id" example:"Llama-3.2-1B-Instruct-Q4_K_M.gguf"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/Llama-3.2-1B-Instruct-Q4_K_M.gguf
	Path string `json:"path" example:"/home/user/models/Llama-3.2-1B-Instruct-Q4_K_M.gguf"`
}
