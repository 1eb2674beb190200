// internal/access/evaluator.go
package access

import "time"

// ReasonCode explains a denied decision.
type ReasonCode string

const (
	ReasonAuthRequired         ReasonCode = "auth_required"
	ReasonSubscriptionRequired ReasonCode = "subscription_required"
	ReasonNotFound             ReasonCode = "not_found"
)

// Decision is the outcome of one access evaluation. It is never persisted.
type Decision struct {
	Allowed      bool       `json:"allowed"`
	ReasonCode   ReasonCode `json:"reasonCode,omitempty"`
	RequiredTier Tier       `json:"requiredTier,omitempty"`
	ViewerTier   Tier       `json:"viewerTier,omitempty"`
}

// Evaluate decides whether viewer may open item at the given instant.
// A nil item means the content id did not resolve. Evaluate never fails;
// every denial is carried in the ReasonCode.
func Evaluate(viewer Viewer, item *ContentItem, now time.Time) Decision {
	if !viewer.Authenticated {
		return Decision{Allowed: false, ReasonCode: ReasonAuthRequired}
	}
	if item == nil {
		return Decision{Allowed: false, ReasonCode: ReasonNotFound}
	}

	effective := viewer.EffectiveTier(now)
	required := item.RequiredTier()

	if effective.Satisfies(required) {
		return Decision{Allowed: true}
	}
	return Decision{
		Allowed:      false,
		ReasonCode:   ReasonSubscriptionRequired,
		RequiredTier: required,
		ViewerTier:   effective,
	}
}

// Evaluator binds Evaluate to a clock.
type Evaluator struct {
	now func() time.Time
}

func NewEvaluator(now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{now: now}
}

func (e *Evaluator) Evaluate(viewer Viewer, item *ContentItem) Decision {
	return Evaluate(viewer, item, e.now())
}

// EffectiveTier reports the viewer's effective tier on the evaluator's clock.
func (e *Evaluator) EffectiveTier(viewer Viewer) Tier {
	return viewer.EffectiveTier(e.now())
}

// Now exposes the evaluator's clock to callers that stamp their output.
func (e *Evaluator) Now() time.Time {
	return e.now()
}
