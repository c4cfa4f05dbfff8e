package plan

// CatalogVersion is bumped whenever a default definition changes.
// Seeding stamps it on every row it writes.
const CatalogVersion = 1

// DefaultCurrency is used for seeded plans
const DefaultCurrency = "usd"

// Definition is the seed data for a single plan kind
type Definition struct {
	Description           string
	Price                 float64
	Duration              int
	MaxRemediesPerAilment int
	Features              []string
}

// Catalog holds the default plan definitions keyed by kind
var Catalog = map[Name]Definition{
	NameFree: {
		Description:           "Browse ailments and open a few remedies for each one",
		Price:                 0,
		Duration:              0,
		MaxRemediesPerAilment: 3,
		Features: []string{
			"Browse all ailments",
			"Access 3 remedies per ailment",
			"Read community reviews",
		},
	},
	NamePremium: {
		Description: "Unlimited access to every remedy",
		Price:       9.99,
		Duration:    30,
		Features: []string{
			"Unlimited remedies for every ailment",
			"Ad-free reading",
			"Expert articles",
			"Priority support",
		},
	},
	NamePayPerRemedy: {
		Description: "Buy only the remedies you need",
		Price:       1.99,
		Duration:    0,
		Features: []string{
			"Purchase individual remedies",
			"Lifetime access to purchased remedies",
			"Browse all ailments",
		},
	},
}

// Defaults builds a Plan for every catalog entry in evaluation order
func Defaults() []*Plan {
	plans := make([]*Plan, 0, len(Catalog))
	for _, name := range Names() {
		plans = append(plans, FromDefinition(name, Catalog[name]))
	}
	return plans
}

// FromDefinition builds an unsaved Plan from a catalog definition
func FromDefinition(name Name, d Definition) *Plan {
	features := make([]string, len(d.Features))
	copy(features, d.Features)
	return &Plan{
		Name:                  name,
		Description:           d.Description,
		Price:                 d.Price,
		Currency:              DefaultCurrency,
		Duration:              d.Duration,
		MaxRemediesPerAilment: d.MaxRemediesPerAilment,
		Features:              features,
		IsActive:              true,
		Version:               CatalogVersion,
	}
}
