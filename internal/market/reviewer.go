package market

// Reviewer binds the review service to a fixed notifier, matching the task
// runner's collaborator shape. Review jobs triggered from the web UI use a
// save-only notifier so nothing is pushed.
type Reviewer struct {
	service  *Service
	notifier ReviewNotifier
}

// NewReviewer creates a reviewer bound to the given notifier
func NewReviewer(service *Service, notifier ReviewNotifier) *Reviewer {
	return &Reviewer{service: service, notifier: notifier}
}

// Run executes the market review
func (r *Reviewer) Run() (string, error) {
	return r.service.Run(r.notifier)
}
