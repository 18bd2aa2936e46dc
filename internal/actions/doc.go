// Package actions runs the assistant's actions (analyze, summarize, reply,
// translate, calendar extraction and custom prompts) against a mail item.
//
// An Orchestrator extracts the item's context, renders the action's prompt
// template, calls the model with the configured generation parameters and
// post-processes the answer. Each invocation gets an id and is reported to
// subscribed observers as it moves through its states, which lets a UI show
// progress without the orchestrator knowing about it.
package actions
