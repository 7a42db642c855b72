// Package registry holds the gateway's service and tool definitions and the
// thread-safe store that maps names to them.
//
// # Data model
//
// A Service is one backend integration (GitHub, Linear, ...) identified by a
// unique ID. Each service contributes a set of Tools; a Tool carries a
// description, a JSON Schema input contract, and the Handler that talks to
// the backend.
//
// Adapters satisfy a single-method capability contract:
//
//	type Adapter interface {
//		Describe() *Service
//	}
//
// The registry never inspects adapter internals; it compiles the declared
// input schemas, indexes the tools, and hands the handlers to the dispatch
// engine.
//
// # Naming
//
// The canonical key for a tool is "<serviceID>.<toolName>". Bare tool names
// also resolve, for callers that predate namespacing; when two services
// declare the same bare name the alias deterministically follows the most
// recently registered service (a warning is logged, and both tools remain
// reachable by qualified name).
//
// # Concurrency
//
// The registry is built during startup and read-mostly afterwards. All
// operations are safe for concurrent use; registration and unregistration
// are atomic, so readers never observe a partially-applied service.
package registry
