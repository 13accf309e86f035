// Package app is the composition root. It wires the configuration loader,
// the scene binding and the artifact store into a single App whose methods
// are the pipeline steps, each an independently runnable batch operation.
package app
