// Package action provides reusable engine.Action implementations: redirects, scope
// assignment and expression evaluation with event mapping of the result.
package action
