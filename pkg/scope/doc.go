/*
Package scope implements the attribute maps behind the request, flash, view, flow and
conversation scopes.

AttributeMap is an insertion-ordered map that is not safe for concurrent use: a flow
execution is mutated by one request at a time. SharedMap wraps a host provided Store
(an HTTP session, an application context) with a single mutex guarding the whole map.
*/
package scope
