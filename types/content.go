package types

// Feature describes one dashboard entitlement.
type Feature struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
	// Limit is an optional quota. Nil means no quota applies.
	Limit *int `json:"limit"`
}

// AnalyticsBundle is the enterprise-only analytics payload.
type AnalyticsBundle struct {
	Dashboards int    `json:"dashboards"`
	Pipeline   string `json:"pipeline"`
	SLA        string `json:"sla"`
}

// TailoredContent is content whose richness depends on the requesting tier.
// Optional sections are nil when the tier is not entitled to them.
type TailoredContent struct {
	Summary         string           `json:"summary"`
	BasicItems      []string         `json:"data_basic"`
	ProItems        []string         `json:"data_pro"`
	EnterpriseItems []string         `json:"data_enterprise"`
	Analytics       *AnalyticsBundle `json:"analytics"`
}
