// Package textgen proxies intake chat turns to a text-generation backend.
//
// [Gemini] talks to the Gemini API through google.golang.org/genai. [Echo]
// repeats the last user message and is meant for development. Both satisfy
// [Completer]. Backend failures are wrapped in [ErrUpstream] so callers can
// answer with a generic message.
package textgen
