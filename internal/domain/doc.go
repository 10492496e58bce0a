// Package domain contains the core entities for sessionguard.
//
// It has no dependencies on infrastructure concerns (HTTP, file system,
// logging).
//
// # Entities
//
//   - [Session]: The signed-in session on this device
//   - [ServerError]: A homeserver rejection of a request
package domain
