// Package agent provides Generator implementations for auto-generating
// conversation participants: an OpenAI-backed generator for real
// deployments and a scripted generator for offline use and tests.
package agent
