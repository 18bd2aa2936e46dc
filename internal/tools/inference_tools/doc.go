// Package inference_tools exposes the inference service as MCP tools.
//
// The tools talk to the configured model directly, without an email or
// appointment around the prompt:
//   - inference_generate: generate text for a single prompt
//   - inference_generate_batch: generate text for several prompts in one request
//   - inference_list_models: list the models the service serves
//   - inference_model_info: show the metadata of the configured model
//   - inference_health: check that the service is ready
package inference_tools
