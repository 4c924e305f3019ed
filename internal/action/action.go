package action

import (
	"fmt"

	"VestLedger/internal/asset"
)

// Type discriminator for action payloads
type Type int32

const (
	TypeUnknown Type = iota
	TypeCreate
	TypeIssue
	TypeBurn
	TypeTransfer
	TypeVest
	TypeClaimVest
	TypeOpen
	TypeClose
)

// Action is the interface all action payloads implement.
type Action interface {
	// Type returns the discriminator
	Type() Type

	// Accounts returns the accounts the action touches, for history indexing
	Accounts() []asset.Name
}

func (t Type) String() string {
	switch t {
	case TypeCreate:
		return "create"
	case TypeIssue:
		return "issue"
	case TypeBurn:
		return "burn"
	case TypeTransfer:
		return "transfer"
	case TypeVest:
		return "vest"
	case TypeClaimVest:
		return "claimvest"
	case TypeOpen:
		return "open"
	case TypeClose:
		return "close"
	default:
		return "unknown"
	}
}

// ParseType maps an action name back to its discriminator.
func ParseType(s string) (Type, error) {
	for t := TypeCreate; t <= TypeClose; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("unknown action %q", s)
}

// New returns an empty payload for t, ready to be decoded into.
func New(t Type) (Action, error) {
	switch t {
	case TypeCreate:
		return &Create{}, nil
	case TypeIssue:
		return &Issue{}, nil
	case TypeBurn:
		return &Burn{}, nil
	case TypeTransfer:
		return &Transfer{}, nil
	case TypeVest:
		return &Vest{}, nil
	case TypeClaimVest:
		return &ClaimVest{}, nil
	case TypeOpen:
		return &Open{}, nil
	case TypeClose:
		return &Close{}, nil
	default:
		return nil, fmt.Errorf("unknown action type %d", t)
	}
}
