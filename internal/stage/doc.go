// Package stage defines the fixed linear processing pipeline, the result
// artifacts each stage produces, and the quality profile tables.
//
// Everything here is static lookup data: deterministic, side-effect free, and
// safe to share across goroutines. The orchestrator and harvester consult
// these tables; they never mutate them.
package stage
