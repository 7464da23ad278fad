// Package stage defines the contract between the workflow manager and the
// pipeline's stage processors: the Processor interface, the Result rulings a
// stage can hand back, and stage health reporting.
package stage
