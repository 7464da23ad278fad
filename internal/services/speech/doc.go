// Package speech wraps the text-to-speech service behind a single-shot
// client that classifies failures for the pipeline's retry policy.
package speech
