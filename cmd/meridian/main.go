// Meridian is a rate-limit-aware aggregation gateway for LLM APIs.
//
// It fronts multiple completion backends behind one HTTP API, balancing
// traffic across them with pluggable strategies, enforcing multi-window
// rate limits per backend and model, and failing over automatically when
// a backend degrades.
//
// Usage:
//
//	# Start the gateway with the default configuration file
//	meridian run
//
//	# Start with a custom configuration file
//	meridian run --config /etc/meridian/config.yaml
//
//	# Validate a configuration file without starting
//	meridian validate
//
//	# Show version information
//	meridian version
package main

func main() {
	Execute()
}
