package stripe

import "github.com/keyword-alchemist-service/internal/model"

// PlanConfig describes a one-time checkout product for a plan.
type PlanConfig struct {
	PriceCents  int64
	Credits     int
	Name        string
	Description string
}

var planConfigs = map[model.Plan]PlanConfig{
	model.PlanBasic: {
		PriceCents:  599,
		Credits:     10,
		Name:        "Basic Plan",
		Description: "Perfect for getting started and testing the waters",
	},
	model.PlanBlogger: {
		PriceCents:  5000,
		Credits:     50,
		Name:        "Blogger Plan",
		Description: "Ideal for serious bloggers building an authority site",
	},
	model.PlanPro: {
		PriceCents:  10000,
		Credits:     240,
		Name:        "Pro / Agency Plan",
		Description: "For professionals managing multiple sites or high-volume content",
	},
}

// PlanConfigFor returns the checkout configuration for a plan.
func PlanConfigFor(plan model.Plan) (PlanConfig, bool) {
	cfg, ok := planConfigs[plan]
	return cfg, ok
}
