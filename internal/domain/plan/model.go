package plan

import (
	"errors"
	"fmt"
	"time"
)

// Name identifies one of the fixed plan kinds
type Name string

const (
	NameFree         Name = "free"
	NamePremium      Name = "premium"
	NamePayPerRemedy Name = "pay-per-remedy"
)

var (
	// ErrNotFound is returned when a plan id or name does not resolve
	ErrNotFound = errors.New("plan not found")
	// ErrUnknownName is returned when a plan name is not one of the fixed kinds
	ErrUnknownName = errors.New("unknown plan name")
)

// Names returns every plan kind in evaluation order
func Names() []Name {
	return []Name{NamePremium, NameFree, NamePayPerRemedy}
}

// IsValid reports whether n is one of the fixed plan kinds
func (n Name) IsValid() bool {
	switch n {
	case NameFree, NamePremium, NamePayPerRemedy:
		return true
	}
	return false
}

func (n Name) String() string {
	return string(n)
}

// ParseName converts a raw string into a Name
func ParseName(s string) (Name, error) {
	n := Name(s)
	if !n.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownName, s)
	}
	return n, nil
}

// Plan is a subscription plan
type Plan struct {
	ID                    string    `json:"id"`
	Name                  Name      `json:"name"`
	Description           string    `json:"description,omitempty"`
	Price                 float64   `json:"price"`
	Currency              string    `json:"currency"`
	Duration              int       `json:"duration"`
	MaxRemediesPerAilment int       `json:"maxRemediesPerAilment"`
	Features              []string  `json:"features"`
	IsActive              bool      `json:"isActive"`
	Version               int       `json:"version"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// IsLifetime reports whether subscriptions to the plan never lapse
func (p *Plan) IsLifetime() bool {
	return p.Duration == 0
}

// PriceCents returns the price in the smallest currency unit
func (p *Plan) PriceCents() int64 {
	return int64(p.Price*100 + 0.5)
}
