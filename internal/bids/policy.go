package bids

import (
	"fmt"
	"slices"

	"github.com/ayush/jobbid/internal/models"
)

// Policy decides which status values and changes a bid accepts.
type Policy interface {
	// Initial is the status a new bid gets when none is given.
	Initial() models.BidStatus
	// Admit validates the status a new bid is created with.
	Admit(status models.BidStatus) error
	// Check validates moving a bid from one status to another by role.
	Check(from, to models.BidStatus, role models.Role) error
	// Conditional reports whether the write must be conditioned on the
	// status Check saw.
	Conditional() bool
}

// OpenPolicy accepts any non-empty status and any change, overwriting
// unconditionally.
type OpenPolicy struct{}

func (OpenPolicy) Initial() models.BidStatus { return models.BidPending }

func (OpenPolicy) Admit(models.BidStatus) error { return nil }

func (OpenPolicy) Check(_, to models.BidStatus, _ models.Role) error {
	if to == "" {
		return fmt.Errorf("%w: empty status", models.ErrInvalidStatus)
	}
	return nil
}

func (OpenPolicy) Conditional() bool { return false }

// transitions lists, per current status, the reachable statuses and the
// roles allowed to move there.
var transitions = map[models.BidStatus]map[models.BidStatus][]models.Role{
	models.BidPending: {
		models.BidAccepted:  {models.RolePoster},
		models.BidRejected:  {models.RolePoster},
		models.BidCancelled: {models.RoleBidder},
	},
	models.BidAccepted: {
		models.BidCompleted: {models.RolePoster},
		models.BidCancelled: {models.RoleBidder, models.RolePoster},
	},
	models.BidRejected:  {},
	models.BidCancelled: {},
	models.BidCompleted: {},
}

// StrictPolicy enforces the closed status set and the transition table.
type StrictPolicy struct{}

func (StrictPolicy) Initial() models.BidStatus { return models.BidPending }

func (StrictPolicy) Admit(status models.BidStatus) error {
	if status != models.BidPending {
		return fmt.Errorf("%w: new bids start as %q, got %q", models.ErrInvalidStatus, models.BidPending, status)
	}
	return nil
}

func (StrictPolicy) Check(from, to models.BidStatus, role models.Role) error {
	if _, ok := transitions[to]; !ok {
		return fmt.Errorf("%w: %q", models.ErrInvalidStatus, to)
	}
	next, ok := transitions[from]
	if !ok {
		return fmt.Errorf("%w: bid is in unknown status %q", models.ErrInvalidTransition, from)
	}
	roles, ok := next[to]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, from, to)
	}
	if !slices.Contains(roles, role) {
		return fmt.Errorf("%w: %s may not move a bid %s -> %s", models.ErrInvalidTransition, role, from, to)
	}
	return nil
}

func (StrictPolicy) Conditional() bool { return true }

// PolicyByName maps the configured policy name to a Policy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "strict", "":
		return StrictPolicy{}, nil
	case "open":
		return OpenPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown bid status policy %q", name)
	}
}
