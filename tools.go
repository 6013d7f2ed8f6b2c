//go:build tools

package tools

// mockery is pinned with a tool directive in go.mod. Regenerate the mocks
// listed in .mockery.yaml with: go tool mockery
