// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [EntryStore]: the encrypted local store (insert, scan, mark sent)
//   - [Transport]: synchronous delivery of one outbound message
//   - [EventSource]: filesystem change notifications for a directory
//   - [Sink]: receiver of formatted text produced by the watcher
//   - [Logger]: structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with SQLite,
// fsnotify, SMTP and HTTP. Tests substitute in-memory fakes.
package ports
