/*
Package ports defines the driven ports (interfaces) of the flow engine.

These interfaces decouple the executor from external implementations, allowing
flow executions to be persisted in various storage backends and flow definitions
to be read from different sources.

# Key Interfaces

  - ConversationStore: persists conversations, the snapshot groups of flow executions.
  - DistributedLocker: provides distributed locking for concurrent conversation access.
  - DefinitionLoader: returns raw flow definition documents by flow id.
  - FlowLocator: resolves built flow definitions by id.
*/
package ports
