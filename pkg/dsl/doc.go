/*
Package dsl provides a Go DSL for programmatically constructing webflow flow definitions.

It lets developers define flows with a fluent builder instead of YAML files. Errors are
collected while building and reported together by Build, so a definition reads top to
bottom without error checks between the steps.

Example usage:

	package main

	import (
		"github.com/aretw0/webflow/pkg/dsl"
	)

	func main() {
		b := dsl.New("booking")

		b.View("enterDetails", detailsView).
			On("submit", "review").
			On("cancel", "cancelled")

		b.View("review", reviewView).
			OnWith("confirm", "booked", engine.WithHistory(domain.HistoryInvalidate)).
			On("revise", "enterDetails")

		b.End("booked")
		b.End("cancelled")

		flow, err := b.Build()
		// ... register flow with a registry.Flows
	}
*/
package dsl
