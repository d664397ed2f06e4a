//go:build tools

package tools

// mockery v3 is used as an installed binary, so no blank imports are
// needed here. Run mockery from the module root to regenerate
// pkg/southbound/mocks and pkg/scheduler/mocks.
