// Package domain contains the core entities and value objects for logship.
//
// This package is the innermost layer. It has no dependencies on storage,
// transport, or logging and holds only the rules every other layer relies on.
//
// # Entities
//
//   - [Entry]: one logged event (time, date, severity, origin, message, sent flag)
//   - [Severity]: ordered level of an entry
//   - [Message]: one outbound delivery built from buffered entries
//   - [FileEvent]: a filesystem change observed next to the store file
//
// # Invariants
//
// An Entry's Sent flag starts false and only ever moves to true. Entries are
// never deleted one at a time; the store drops them all at once on rotation.
package domain
