// Package generator produces text from prompts.
//
// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
// MockClient returns a fixed response and is used in development so nothing
// leaves the machine.
package generator
