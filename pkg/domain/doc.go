/*
Package domain contains the value types shared by the webflow engine and its adapters.

It is kept free of behavior that depends on flow definitions, I/O or persistence so that
stores, transports and observers can depend on it without pulling in the engine.

# Key Entities

  - Event: a named signal (e.g. "submit") that drives a transition.
  - FlowExecutionKey: the opaque handle of a persisted execution snapshot.
  - ExecutionSnapshot: the serializable form of a paused flow execution.
  - Conversation: the group of snapshots belonging to one execution.
  - LifecycleHooks: callbacks for observing requests, sessions, states and views.
*/
package domain
