/*
Package webflow is a controlled-navigation engine for multi-step web conversations.

A flow is a set of states (views that render a page and pause, actions, decisions,
subflows and ends) joined by transitions on named events. Each HTTP request either
launches a new execution of a flow or resumes a paused one identified by its
execution key; the engine handles the event, moves through states, and pauses again
on the next view, taking a snapshot so that the browser back button, refresh and
bookmarks resume from a consistent state.

# Concept

The engine never parses HTTP. It reads parameters from, writes to and records
redirects on an external context; adapters turn that into responses. Paused
executions live in a repository of snapshot groups ("conversations") kept in a
pluggable store: memory, Redis or bbolt, optionally encrypted.

# Usage

	flows := registry.NewFlows()
	flow, err := dsl.New("booking").
		View("form", formView).On("submit", "done").Done().
		End("done").Done().
		Build()
	if err != nil {
		log.Fatal(err)
	}
	_ = flows.Register(flow)

	exec, _ := webflow.New(flows)
	res, err := exec.Launch(ctx, "booking", nil, external.NewLocal(nil))
	// res.Key names the paused execution; resume it with the user's event:
	res, err = exec.Resume(ctx, res.Key, external.NewLocal(map[string]string{"_eventId": "submit"}))

Flows can also be declared in YAML and loaded with the definition package, and served
over HTTP with the chi handler in pkg/adapters/http.
*/
package webflow
