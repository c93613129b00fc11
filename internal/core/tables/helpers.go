package tables

import "github.com/JonMunkholm/medallion/internal/core"

// Shorthands for schema declarations.
func text(name string) core.Column { return core.Column{Name: name, Type: core.TypeString} }
func integer(name string) core.Column { return core.Column{Name: name, Type: core.TypeInt64} }
func float(name string) core.Column { return core.Column{Name: name, Type: core.TypeFloat64} }
