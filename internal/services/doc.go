// Package services holds the cross-cutting error taxonomy and context
// annotations shared by stage processors and the workflow manager.
//
// Stage errors are tagged with sentinel markers (ErrTransient,
// ErrUnavailable, ErrPermanent, ErrValidation, ErrConfiguration) via Wrap.
// Classify turns a tagged error into the retry class the orchestrator's
// backoff policy keys on; misclassifying an upstream error is the most
// consequential bug in the pipeline, so every capability client funnels its
// failures through this package.
package services
