// Package chat provides the request-scoped streaming inference pipeline that
// sits between an inbound chat query and the inference engine. It is
// structured into small files by concern:
//
//   - model.go: Model type, token budget, static prompt and Query.
//   - config.go: ModelConfig and package defaults; NewModel applies defaults.
//   - engine.go: the Engine/Generation capability implemented by runtimes.
//   - template.go: chat template rendering shared by the engines.
//   - stream.go: FragmentStream, the cancellable adapter over a Generation.
//   - signal.go: Signal, the per-request cancellation flag.
//   - watchdog.go: Watchdog, which sets a Signal when the client goes away.
//   - respond.go: Drain and Bench, the buffered and benchmark presentations.
//   - admission.go: optional queueing and in-flight limits.
//   - errors.go: error types and helpers (IsInvalidInput, IsTooBusy, ...).
//   - events.go: lifecycle events and publishers.
//
// Engines live in internal/engine/*; the HTTP surface lives in internal/httpapi.
package chat
