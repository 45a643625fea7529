// Package tier maps a subscription tier to the features and content it
// unlocks. Everything here is pure and deterministic.
package tier

import (
	"fmt"

	"github.com/tailored-api/apiserver/types"
)

const (
	FeatureBasicSearch = "basic-search"
	FeatureReports     = "reports"
	FeatureExport      = "export"
	FeatureAnalytics   = "analytics"
)

const basicSearchLimit = 100

var reportLimits = map[types.Tier]int{
	types.TierPro:        10,
	types.TierEnterprise: 50,
}

// FeaturesFor returns the dashboard features for t. Order is fixed: base
// features, then conditional features, then the synthetic tier marker.
// Unset or unknown tiers are treated as free.
func FeaturesFor(t types.Tier) []types.Feature {
	t = t.OrFree()
	paid := t == types.TierPro || t == types.TierEnterprise

	features := []types.Feature{
		{Key: FeatureBasicSearch, Label: "Basic Search", Enabled: true, Limit: intPtr(basicSearchLimit)},
		{Key: FeatureReports, Label: "Reports", Enabled: paid, Limit: reportLimit(t)},
		{Key: FeatureExport, Label: "Data Export", Enabled: paid},
		{Key: FeatureAnalytics, Label: "Advanced Analytics", Enabled: t == types.TierEnterprise},
	}
	return append(features, types.Feature{
		Key:     fmt.Sprintf("tier-%s", t),
		Label:   fmt.Sprintf("Tier: %s", t),
		Enabled: true,
	})
}

// Allows reports whether feature key is enabled for t.
func Allows(t types.Tier, key string) bool {
	for _, f := range FeaturesFor(t) {
		if f.Key == key {
			return f.Enabled
		}
	}
	return false
}

// ContentFor returns the tailored content for t. Sections the tier is not
// entitled to are left nil.
func ContentFor(t types.Tier) types.TailoredContent {
	t = t.OrFree()
	content := types.TailoredContent{
		Summary:    fmt.Sprintf("Content for %s user", t),
		BasicItems: []string{"overview", "getting-started", "samples"},
	}
	if t == types.TierPro || t == types.TierEnterprise {
		content.ProItems = []string{"pro-tips", "enhanced-datasets"}
	}
	if t == types.TierEnterprise {
		content.EnterpriseItems = []string{"enterprise-insights", "priority-roadmap"}
		content.Analytics = &types.AnalyticsBundle{
			Dashboards: 5,
			Pipeline:   "real-time",
			SLA:        "99.9%",
		}
	}
	return content
}

func reportLimit(t types.Tier) *int {
	limit, ok := reportLimits[t]
	if !ok {
		return nil
	}
	return intPtr(limit)
}

func intPtr(v int) *int {
	return &v
}
