package tests

import (
	"testing"

	"github.com/aretw0/webflow/pkg/ports"
)

// DefinitionLoaderContractTest is a reusable test suite that verifies if an adapter
// complies with ports.DefinitionLoader.
func DefinitionLoaderContractTest(t *testing.T, loader ports.DefinitionLoader, setupData map[string][]byte) {
	t.Helper()

	t.Run("GetFlow_Success", func(t *testing.T) {
		for id, expected := range setupData {
			content, err := loader.GetFlow(id)
			if err != nil {
				t.Fatalf("unexpected error getting flow %s: %v", id, err)
			}
			if string(content) != string(expected) {
				t.Errorf("content mismatch for %s. got %q, want %q", id, content, expected)
			}
		}
	})

	t.Run("GetFlow_NotFound", func(t *testing.T) {
		if _, err := loader.GetFlow("non-existent-flow"); err == nil {
			t.Error("expected error for non-existent flow, got nil")
		}
	})

	t.Run("ListFlows", func(t *testing.T) {
		ids, err := loader.ListFlows()
		if err != nil {
			t.Fatalf("unexpected error listing flows: %v", err)
		}
		if len(ids) != len(setupData) {
			t.Errorf("expected %d flows, got %d", len(setupData), len(ids))
		}
		lookup := make(map[string]bool)
		for _, id := range ids {
			lookup[id] = true
		}
		for id := range setupData {
			if !lookup[id] {
				t.Errorf("flow %s missing from list", id)
			}
		}
	})
}
