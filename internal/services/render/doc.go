// Package render wraps the video rendering service behind a single-shot
// client that classifies failures for the pipeline's retry policy.
package render
