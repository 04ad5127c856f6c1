// Package docstore is the document persistence collaborator of the intake
// gateway, implemented on Redis.
//
// # Data layout
//
// Every document is a Redis hash at
//
//	<prefix>:doc:<collection>:<key>
//
// Fields registered as orderable for a collection are mirrored into a sorted
// set at <prefix>:idx:<collection>:<field>, scored by the field's numeric value
// and keyed by document key. [Store.QueryOrdered] walks that set.
//
// # Atomicity
//
//   - [Store.CompareAndSet] is a single Lua script (check field, then set).
//   - [Store.Create], [Store.Update] and [Store.Commit] use WATCH/MULTI optimistic
//     transactions and retry on contention a bounded number of times.
//
// # What this package must NOT do
//
//   - Know about credentials, reports or any other domain record shape.
//   - Import goIntake or any sibling internal package.
package docstore
