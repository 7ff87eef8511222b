/*
Package engine implements the flow execution state machine.

A Flow is an immutable graph of states. A FlowExecution drives one conversation through
that graph: it owns a stack of FlowSessions (the root flow plus any active subflows),
the flash and conversation scopes, and the key of its current snapshot. Each inbound
request builds a RequestControlContext over the execution, which states use to move
the machine: set the current state, execute transitions, start and end sessions and
manage snapshots according to the history policy of the transition being taken.

The state variants are a closed set: ViewState, ActionState, DecisionState,
SubflowState and EndState. All of them implement State; the ones that can be left
through a transition also implement TransitionableState, and ViewState additionally
supports Resume.

Executions are not safe for concurrent use. The repository that loads them is
responsible for letting at most one request work on a conversation at a time.
*/
package engine
