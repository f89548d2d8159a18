// Package executor runs GraphQL operations breadth-first against a Runtime.
//
// # Preparation
//
// ExecuteRequest picks the operation (by name, or the only one), coerces the
// variables against its definitions and builds a ResolveInfo for every field
// instance it hands to the Runtime. Variable errors stop execution before any
// field runs. Subscription operations must select a single root field.
//
// # Depths
//
// Fields are either synchronous or asynchronous, as marked by
// schema.Field.Async. The schema builder marks the fields of the Query root
// asynchronous; everything else, including Mutation fields, resolves
// synchronously so that mutations keep their serial order.
//
// Execution proceeds one depth at a time:
//
//	A. Expand the frontier. Sync fields call Runtime.ResolveSync and complete
//	   at once; object results are expanded further without adding depth.
//	   Async fields are queued as AsyncResolveTasks.
//	B. Call Runtime.BatchResolveAsync once with every task queued at this
//	   depth. The runtime returns one result per task, in order.
//	C. Complete the batch results. Their async children wait for the next
//	   depth.
//
// For a selection whose async nesting is d, BatchResolveAsync is called
// exactly d times.
//
// # Completion
//
// Lists complete element-wise with index paths. Leaves go through
// Runtime.SerializeLeafValue. Interfaces and unions go through
// Runtime.ResolveType and the returned name is checked against the schema.
// A fragment type condition matches the object type, any interface it
// implements or any union containing it.
//
// A null or error on a Non-Null position nulls the nearest nullable ancestor.
// Tasks already queued beneath that ancestor are dropped. Every other error
// is recorded with its path and the field becomes null, so a batch may
// partially succeed.
//
// # Extensions
//
// Resolvers add response extensions with SetExtension on the context they
// were called with.
package executor
