// Package gate composes the two external verification providers into a
// single admit/deny decision. The full sequence runs on every gated
// interaction; a previous pass is never cached.
package gate

import (
	"context"
	"log"

	"starsref-bot/internal/flyer"
	"starsref-bot/internal/subgram"
)

// Identity carries what the providers need to know about the interacting
// user.
type Identity struct {
	UserID       int64
	ChatID       int64
	FirstName    string
	Username     string
	LanguageCode string
}

// RequiredAction is one sponsor task the user still has to complete.
type RequiredAction struct {
	Label string
	URL   string
}

// Decision is the gate verdict. When Admitted is false and Actions is
// non-empty the caller renders the action list with a re-check button; when
// Actions is empty the provider has already told the user what to do (or is
// unreachable) and the caller renders nothing.
type Decision struct {
	Admitted bool
	Actions  []RequiredAction
}

type Evaluator struct {
	Flyer   *flyer.Client
	Subgram *subgram.Client
}

func NewEvaluator(flyerClient *flyer.Client, subgramClient *subgram.Client) *Evaluator {
	return &Evaluator{Flyer: flyerClient, Subgram: subgramClient}
}

// Evaluate runs the sponsor check first and short-circuits on pending
// actions; only then is the verification provider consulted. A sponsor-check
// transport failure denies (fail-closed); a verification transport failure
// admits (fail-open).
func (e *Evaluator) Evaluate(ctx context.Context, identity Identity) Decision {
	op := subgram.OpRequest{
		UserID:       identity.UserID,
		ChatID:       identity.ChatID,
		FirstName:    identity.FirstName,
		Username:     identity.Username,
		LanguageCode: identity.LanguageCode,
	}
	resp, err := e.Subgram.RequestOp(ctx, op)
	if err != nil {
		log.Printf("Sponsor check failed for user %d: %v", identity.UserID, err)
		return Decision{Admitted: false}
	}
	if resp.Status == subgram.StatusWarning && len(resp.Links) > 0 {
		actions := make([]RequiredAction, 0, len(resp.Links))
		for _, link := range resp.Links {
			actions = append(actions, RequiredAction{Label: link.ResourceName, URL: link.Link})
		}
		return Decision{Admitted: false, Actions: actions}
	}

	ok, err := e.Flyer.Check(ctx, identity.UserID, identity.LanguageCode)
	if err != nil {
		log.Printf("Verification check failed for user %d, admitting: %v", identity.UserID, err)
		return Decision{Admitted: true}
	}
	if !ok {
		// Flyer messages the user itself on deny.
		return Decision{Admitted: false}
	}

	return Decision{Admitted: true}
}
