package domain

// DefaultCaseCatalog is the built-in case list used when no persisted
// catalog exists or the persisted one was dropped by the quota ladder.
func DefaultCaseCatalog() []CaseType {
	return []CaseType{
		{ID: "case-bronze", Name: "Bronze Case", Price: 100},
		{ID: "case-silver", Name: "Silver Case", Price: 250},
		{ID: "case-gold", Name: "Gold Case", Price: 500},
		{ID: "case-legendary", Name: "Legendary Case", Price: 1000},
	}
}
