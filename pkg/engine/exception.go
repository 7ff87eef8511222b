package engine

import (
	"errors"
)

// Flash attributes set by TransitionExecutingExceptionHandler.
const (
	FlowExecutionExceptionAttribute = "flowExecutionException"
	RootCauseExceptionAttribute     = "rootCauseException"
)

// ExceptionHandler recovers from errors raised while processing a request.
type ExceptionHandler interface {
	CanHandle(err error) bool
	Handle(err error, rc *RequestControlContext) error
}

// ExceptionHandlerSet is an ordered list of handlers; the first able to handle wins.
type ExceptionHandlerSet struct {
	handlers []ExceptionHandler
}

func (s *ExceptionHandlerSet) Add(h ...ExceptionHandler) *ExceptionHandlerSet {
	s.handlers = append(s.handlers, h...)
	return s
}

func (s *ExceptionHandlerSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.handlers)
}

// All returns the handlers in order.
func (s *ExceptionHandlerSet) All() []ExceptionHandler {
	if s == nil {
		return nil
	}
	return append([]ExceptionHandler(nil), s.handlers...)
}

func (s *ExceptionHandlerSet) handle(err error, rc *RequestControlContext) (bool, error) {
	if s == nil {
		return false, nil
	}
	for _, h := range s.handlers {
		if h.CanHandle(err) {
			return true, h.Handle(err, rc)
		}
	}
	return false, nil
}

// TransitionExecutingExceptionHandler moves the execution to a target state when a
// matching error occurs. The error text is exposed to the target state through flash
// scope.
type TransitionExecutingExceptionHandler struct {
	target  string
	targets []error
	match   func(error) bool
	actions *ActionList
}

// NewTransitionExecutingExceptionHandler handles errors that are, in the errors.Is
// sense, one of targets. With no targets it handles every error.
func NewTransitionExecutingExceptionHandler(targetStateID string, targets ...error) *TransitionExecutingExceptionHandler {
	return &TransitionExecutingExceptionHandler{
		target:  targetStateID,
		targets: targets,
		actions: NewActionList(),
	}
}

// MatchFunc replaces the errors.Is matching with fn.
func (h *TransitionExecutingExceptionHandler) MatchFunc(fn func(error) bool) *TransitionExecutingExceptionHandler {
	h.match = fn
	return h
}

// Actions run before the transition executes.
func (h *TransitionExecutingExceptionHandler) Actions() *ActionList { return h.actions }

func (h *TransitionExecutingExceptionHandler) TargetStateID() string { return h.target }

func (h *TransitionExecutingExceptionHandler) CanHandle(err error) bool {
	if h.match != nil {
		return h.match(err)
	}
	if len(h.targets) == 0 {
		return true
	}
	for _, t := range h.targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

func (h *TransitionExecutingExceptionHandler) Handle(err error, rc *RequestControlContext) error {
	rc.FlashScope().Put(FlowExecutionExceptionAttribute, err.Error())
	rc.FlashScope().Put(RootCauseExceptionAttribute, rootCause(err).Error())
	if err := h.actions.Execute(rc); err != nil {
		return err
	}
	_, execErr := rc.Execute(NewTransition(To(h.target)))
	return execErr
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
