package instrumentation

import "strings"

// Cardinality helpers reduce free-form values to a bounded label set.
// Use them whenever a metric label would otherwise carry an address,
// a status code or an arbitrary model name.

// ExtractUserDomain extracts the domain part from an email address.
//
// Example:
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
//	ExtractUserDomain("")                  // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "unknown"
	}
	return strings.ToLower(strings.TrimSuffix(email[at+1:], ">"))
}

// StatusClass maps an HTTP status code to its class ("2xx", "4xx", ...).
// Codes outside 100-599 map to "unknown".
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return string(rune('0'+code/100)) + "xx"
}

// Inference client operation names used as metric and span labels.
const (
	OperationGenerate       = "generate"
	OperationGenerateBatch  = "generate_batch"
	OperationModelInfo      = "model_info"
	OperationListModels     = "list_models"
	OperationTestConnection = "test_connection"
)
