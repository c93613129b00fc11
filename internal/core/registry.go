package core

import (
	"fmt"
	"sync"
)

// TableDefinition describes one source table of the pipeline.
type TableDefinition struct {
	Name     string  // Logical name: "orders"
	FileName string  // Raw extract file: "olist_orders_dataset.csv"
	Schema   *Schema // Silver schema; nil if the table is bronze-only
}

// Refinable reports whether the table takes part in the silver stage.
func (d TableDefinition) Refinable() bool { return d.Schema != nil }

var (
	registry   = make(map[string]TableDefinition)
	order      []string
	registryMu sync.RWMutex
)

// Register adds a table definition to the registry.
// Panics if a table with the same name is already registered.
func Register(def TableDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Name]; exists {
		panic(fmt.Sprintf("table already registered: %s", def.Name))
	}

	registry[def.Name] = def
	order = append(order, def.Name)
}

// Get returns a table definition by name.
// Returns false if not found.
func Get(name string) (TableDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[name]
	return def, ok
}

// All returns all registered table definitions in registration order.
func All() []TableDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]TableDefinition, 0, len(order))
	for _, name := range order {
		result = append(result, registry[name])
	}
	return result
}

// Refinable returns the definitions that carry a silver schema,
// in registration order.
func Refinable() []TableDefinition {
	var result []TableDefinition
	for _, def := range All() {
		if def.Refinable() {
			result = append(result, def)
		}
	}
	return result
}

// TableCount returns the number of registered tables.
func TableCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered tables.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]TableDefinition)
	order = nil
}
