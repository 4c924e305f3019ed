package action

import "VestLedger/internal/asset"

// Vest locks Quantity out of the deployment's own balance for To until
// Seconds have elapsed.
type Vest struct {
	To       asset.Name   `json:"to"`
	Quantity asset.Amount `json:"quantity"`
	Seconds  int64        `json:"vest_seconds"`
	Memo     string       `json:"memo"`
}

func (a *Vest) Type() Type             { return TypeVest }
func (a *Vest) Accounts() []asset.Name { return []asset.Name{a.To} }

// ClaimVest releases Quantity of a matured vest to its receiver. Receiver is
// filled in by the engine once the record has been loaded.
type ClaimVest struct {
	ID       uint64       `json:"id"`
	Quantity asset.Amount `json:"quantity"`

	Receiver asset.Name `json:"-"`
}

func (a *ClaimVest) Type() Type { return TypeClaimVest }
func (a *ClaimVest) Accounts() []asset.Name {
	if a.Receiver == "" {
		return nil
	}
	return []asset.Name{a.Receiver}
}
