// Package inference is the client for the remote text-generation service.
//
// The service speaks JSON over HTTP:
//
//	POST /v2/models/{model}/generate        {prompt, max_tokens, temperature, top_p, stop_sequences, return_full_text}
//	POST /v2/models/{model}/generate_batch  same, with prompts instead of prompt
//	GET  /v2/models/{model}                 model metadata
//	GET  /v2/models                         all models
//	GET  /v2/health/ready                   {"status":"READY"}
//
// Every request is bounded by a per-attempt timeout and retried up to
// MaxRetries attempts in total. Before attempt n+1 the client waits
// RetryDelay*n. Timeouts, network errors, non-2xx answers and undecodable
// bodies are all retried the same way. When every attempt fails the caller
// receives an *ExhaustedRetriesError wrapping the last failure.
//
// TestConnection is the only operation that never returns an error.
package inference
