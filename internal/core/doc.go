// Package core provides the table model and transformation operators for the
// medallion pipeline.
//
// This package is the heart of the pipeline, containing all transformation
// logic independent of file formats, storage or transport. It can be used by
// the pipeline stages, the HTTP surface, or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Table: an in-memory rectangular dataset of nullable, typed [Value]s.
//   - Table Definitions: registered via the registry, each source table has a
//     logical name, a raw file name and an optional silver [Schema].
//   - Operators: [Refine], [Table.Project], [Table.Dedupe],
//     [Table.DropNullKeys], [LeftJoin] and [GroupBy].
//   - Conversion: per-value parsing that yields nulls instead of errors.
//
// # Table Registry
//
// Tables are registered at init time using [Register]:
//
//	core.Register(core.TableDefinition{
//	    Name:     "orders",
//	    FileName: "olist_orders_dataset.csv",
//	    Schema: &core.Schema{
//	        Columns: []core.Column{{Name: "order_id", Type: core.TypeString}},
//	        Keys:    []string{"order_id"},
//	    },
//	})
//
// # Refinement
//
// [Refine] applies a schema in four steps: temporal coercion, type coercion,
// exact-duplicate removal and required-key filtering. Coercion is per value
// and never fails; a cell that cannot be converted becomes null.
//
// # Joins
//
// [LeftJoin] preserves every left row and enforces a [Cardinality] contract.
// A left row matching more than one right row is an [ErrCardinality] error.
//
// # Error Handling
//
// Fatal errors are [PipelineError]s carrying a code, mapped to operator
// guidance by [MapError]:
//
//   - SRC001-SRC002: Source errors (missing or malformed raw file)
//   - ART001: Missing upstream artifact
//   - COL001: Missing column
//   - JOIN001: Join cardinality violation
//   - WRT001: Artifact write failure
package core
