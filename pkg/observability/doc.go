/*
Package observability provides tools for monitoring flow executions.

Prometheus collectors and structured logging are both exposed as
domain.LifecycleHooks, so they plug into an executor the same way as any other
listener, and Combine fans one set of hooks out to several.
*/
package observability
