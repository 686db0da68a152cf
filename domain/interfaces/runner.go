package interfaces

import (
	"context"

	"feedback_automation/domain/entities"
)

// FeedbackRunner executes the feedback workflow for one set of credentials.
// The returned channel delivers messages in order and is closed when the run ends.
type FeedbackRunner interface {
	Run(ctx context.Context, creds entities.Credentials) <-chan entities.Message
}
