package browser

import (
	"context"
	"errors"
	"fmt"

	"feedback_automation/domain/entities"
)

// classify - wraps a driver error into the automation failure taxonomy.
// isTimeout recognises the driver's own timeout error; fallback is used for
// everything else.
func classify(op string, err error, isTimeout func(error) bool, fallback entities.FailureKind) error {
	if err == nil {
		return nil
	}
	var ae *entities.AutomationError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || (isTimeout != nil && isTimeout(err)) {
		return entities.NewAutomationError(entities.FailureTimeout, op, err)
	}
	return entities.NewAutomationError(fallback, op, err)
}

func timeoutError(op string, loc fmt.Stringer) error {
	return entities.NewAutomationError(entities.FailureTimeout, op, fmt.Errorf("waiting for %s", loc))
}

func notFoundError(op string, loc fmt.Stringer) error {
	return entities.NewAutomationError(entities.FailureElementNotFound, op, fmt.Errorf("no element matches %s", loc))
}
