package httpapi

import (
	"net/http"

	"llmapi/internal/chat"
	"llmapi/pkg/types"
)

// handleChat answers with the whole generation at once. A watchdog races the
// drain so a client that hangs up stops generation at the next fragment.
//
// @Summary  Answer a chat query
// @Tags     chat
// @Accept   json
// @Produce  json
// @Param    request body types.QueryRequest true "Chat messages"
// @Success  200 {object} types.AnswerResponse
// @Failure  400 {object} types.ErrorResponse
// @Failure  429 {object} types.ErrorResponse
// @Failure  500 {object} types.ErrorResponse
// @Router   /v1/chat [post]
func handleChat(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages, ok := decodeQuery(w, r)
		if !ok {
			return
		}
		rl := newReqLog(r, "/v1/chat")
		rl.begin(len(messages))

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		signal := chat.NewSignal()
		wd := chat.StartWatchdog(connReceiver(ctx), signal)
		defer wd.Stop()

		stream, err := svc.Query(ctx, messages, signal)
		if isRejected(err) {
			writeJSON(w, http.StatusOK, types.AnswerResponse{Answer: chat.Fallback})
			rl.end(http.StatusOK, 0, nil)
			return
		}
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status, msg := statusFor(err)
			writeJSONError(w, status, msg)
			rl.end(status, 0, err)
			return
		}

		i := 0
		res, err := chat.DrainFunc(stream, func(frag string) {
			rl.fragment(i, frag)
			i++
		})
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			rl.end(http.StatusInternalServerError, res.Fragments, err)
			return
		}
		writeJSON(w, http.StatusOK, types.AnswerResponse{Answer: res.Answer()})
		rl.end(http.StatusOK, res.Fragments, nil)
	}
}

// handleBenchmark times one full generation.
//
// @Summary  Benchmark a chat query
// @Tags     chat
// @Accept   json
// @Produce  json
// @Param    request body types.QueryRequest true "Chat messages"
// @Success  200 {object} types.BenchmarkResponse
// @Failure  400 {object} types.ErrorResponse
// @Router   /v1/chat/benchmark [post]
func handleBenchmark(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages, ok := decodeQuery(w, r)
		if !ok {
			return
		}
		rl := newReqLog(r, "/v1/chat/benchmark")
		rl.begin(len(messages))

		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		signal := chat.NewSignal()
		b, err := chat.Bench(func() (*chat.FragmentStream, error) {
			return svc.Query(ctx, messages, signal)
		})
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status, msg := statusFor(err)
			writeJSONError(w, status, msg)
			rl.end(status, 0, err)
			return
		}
		writeJSON(w, http.StatusOK, types.BenchmarkResponse{
			Response:        b.Response,
			Tokens:          b.Tokens,
			TotalTime:       b.TotalTime,
			TokensPerSecond: b.TokensPerSecond,
		})
		rl.end(http.StatusOK, b.Tokens, nil)
	}
}
