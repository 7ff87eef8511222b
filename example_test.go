package webflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/pkg/adapters/memory"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/dsl"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/aretw0/webflow/pkg/registry"
	"github.com/aretw0/webflow/pkg/repository"
	"github.com/aretw0/webflow/pkg/session"
	"github.com/aretw0/webflow/pkg/view"
)

// ExampleExecutor launches a one-page flow, then resumes it with the user's event.
func ExampleExecutor() {
	greet := view.NewActionExecutingViewFactory(engine.ActionFunc(func(rc engine.RequestContext) (*domain.Event, error) {
		_, err := fmt.Fprint(rc.ExternalContext().ResponseWriter(), "Hello! [continue]")
		return engine.Success("greet"), err
	}))
	flow, err := dsl.New("hello").
		View("greet", greet).On("continue", "done").Done().
		End("done").Done().
		Build()
	if err != nil {
		log.Fatal(err)
	}
	flows := registry.NewFlows()
	if err := flows.Register(flow); err != nil {
		log.Fatal(err)
	}

	// Fixed conversation ids keep the printed keys stable.
	repo := repository.New(flows, session.NewManager(memory.NewStore()),
		repository.WithIDGenerator(func() string { return "1" }))
	exec, err := webflow.New(flows, webflow.WithRepository(repo))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	page := external.NewLocal(nil)
	res, err := exec.Launch(ctx, "hello", nil, page)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(page.Output())
	fmt.Println(res.Key, res.Paused)

	res, err = exec.Resume(ctx, res.Key, external.NewLocal(map[string]string{"_eventId": "continue"}))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Outcome.ID, res.Paused)

	// Output:
	// Hello! [continue]
	// e1s1 true
	// done false
}
