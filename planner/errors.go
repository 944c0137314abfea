package planner

import "github.com/pkg/errors"

var (
	// ErrPlanningFailed is returned when the iteration budget runs out before the goal is
	// reached, or when no node near the goal can be safely connected to it.
	ErrPlanningFailed = errors.New("motion planner failed to find path")

	// ErrInvalidConfig wraps every config validation problem.
	ErrInvalidConfig = errors.New("invalid planner config")
)
