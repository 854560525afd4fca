// Package crm pushes stored leads one way into external tracking
// systems. Pushers never read anything back into the store.
package crm

import (
	"context"
	"strings"

	"github.com/logiclamp/leadscout/internal/model"
)

// Pusher sends a batch of leads to one destination.
type Pusher interface {
	Name() string
	Push(ctx context.Context, leads []model.Lead) (PushResult, error)
}

// PushResult reports per-record outcomes of a push.
type PushResult struct {
	Created int
	Updated int
	Skipped int
	Failed  int
	Errors  []string
}

// ratingForScore maps an effective score to the rating bands the sales
// team uses for triage.
func ratingForScore(score int) string {
	switch {
	case score >= 70:
		return "Hot"
	case score >= 40:
		return "Warm"
	default:
		return "Cold"
	}
}

// contactNameParts splits a contact into first and last name on the
// first space. A single token is treated as a last name, since that is
// the field CRMs require.
func contactNameParts(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 1 {
		return "", parts[0]
	}
	return parts[0], strings.TrimSpace(parts[1])
}
