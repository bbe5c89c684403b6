package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ssgtools/tpconsole/internal/mapping"
)

// Kind describes one uploadable record kind: its column-mapping table,
// its validation rules, and how it is presented to the operator.
type Kind struct {
	Key       string // Unique identifier: "course_runs"
	Label     string // Display name: "Course Runs"
	SheetName string // Conventional sheet name in upload workbooks

	// Submittable marks kinds with a remote submission operation.
	// Course sessions are mapped and validated for preview only; they
	// reach the API embedded in a course run, not on their own.
	Submittable bool

	// Mappings is the fixed column-to-path configuration for this kind.
	Mappings []mapping.ColumnMapping

	// Validate applies the kind's domain rules to one mapped record.
	// All rules run; every failure contributes one diagnostic.
	Validate func(mapping.Record) mapping.Verdict
}

var (
	registry   = make(map[string]Kind)
	registryMu sync.RWMutex
)

// Register adds a record kind to the registry.
// Panics if the key is already registered or the mapping table is
// malformed; both are configuration defects that must fail at startup,
// not during row processing.
func Register(k Kind) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[k.Key]; exists {
		panic(fmt.Sprintf("record kind already registered: %s", k.Key))
	}
	if err := mapping.CheckMappings(k.Mappings); err != nil {
		panic(fmt.Sprintf("record kind %s: %v", k.Key, err))
	}

	registry[k.Key] = k
}

// Get returns a record kind by key.
func Get(key string) (Kind, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	k, ok := registry[key]
	return k, ok
}

// All returns every registered kind, sorted by key.
func All() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Kind, 0, len(registry))
	for _, k := range registry {
		result = append(result, k)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// Count returns the number of registered kinds.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered kinds. Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Kind)
}
