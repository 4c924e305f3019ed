package action

import "VestLedger/internal/asset"

// Create registers a new token with a supply ceiling.
type Create struct {
	Issuer        asset.Name   `json:"issuer"`
	MaximumSupply asset.Amount `json:"maximum_supply"`
}

func (a *Create) Type() Type             { return TypeCreate }
func (a *Create) Accounts() []asset.Name { return []asset.Name{a.Issuer} }

// Issue mints new supply into the issuer's balance.
type Issue struct {
	To       asset.Name   `json:"to"`
	Quantity asset.Amount `json:"quantity"`
	Memo     string       `json:"memo"`
}

func (a *Issue) Type() Type             { return TypeIssue }
func (a *Issue) Accounts() []asset.Name { return []asset.Name{a.To} }

// Burn destroys supply out of the burner's balance.
type Burn struct {
	Burner   asset.Name   `json:"burner"`
	Quantity asset.Amount `json:"quantity"`
	Memo     string       `json:"memo"`
}

func (a *Burn) Type() Type             { return TypeBurn }
func (a *Burn) Accounts() []asset.Name { return []asset.Name{a.Burner} }

// Transfer moves free balance between two accounts.
type Transfer struct {
	From     asset.Name   `json:"from"`
	To       asset.Name   `json:"to"`
	Quantity asset.Amount `json:"quantity"`
	Memo     string       `json:"memo"`
}

func (a *Transfer) Type() Type             { return TypeTransfer }
func (a *Transfer) Accounts() []asset.Name { return []asset.Name{a.From, a.To} }

// Open creates a zero balance row for owner, paid for by Payer.
type Open struct {
	Owner  asset.Name   `json:"owner"`
	Symbol asset.Symbol `json:"symbol"`
	Payer  asset.Name   `json:"ram_payer"`
}

func (a *Open) Type() Type { return TypeOpen }
func (a *Open) Accounts() []asset.Name {
	if a.Payer == a.Owner {
		return []asset.Name{a.Owner}
	}
	return []asset.Name{a.Owner, a.Payer}
}

// Close deletes owner's zero balance row.
type Close struct {
	Owner  asset.Name   `json:"owner"`
	Symbol asset.Symbol `json:"symbol"`
}

func (a *Close) Type() Type             { return TypeClose }
func (a *Close) Accounts() []asset.Name { return []asset.Name{a.Owner} }
