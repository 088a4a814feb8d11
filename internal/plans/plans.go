package plans

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidPlan = errors.New("invalid plan")

// Plan describes a purchasable premium tier. Prices are carried both in major
// units (rupees, for display) and minor units (paise, for the gateway).
type Plan struct {
	ID           string
	Key          string
	Name         string
	DurationDays int
	PriceRupees  int
	PricePaise   int
	Description  string
}

// Discount is a percentage-off code with an absolute cap in paise.
type Discount struct {
	Code        string
	Percent     int
	MaxPaise    int
	ValidUntil  time.Time
	Description string
}

// Quote is the priced outcome of resolving a plan with an optional discount
// code. An unknown or expired code yields Applied == false and the full price.
type Quote struct {
	Plan          Plan
	OriginalPaise int
	DiscountPaise int
	FinalPaise    int
	Code          string
	Applied       bool
}

// Catalog is the immutable set of plans and discount codes, built once at
// startup and passed explicitly to the services that price or activate plans.
type Catalog struct {
	plans     []Plan
	discounts map[string]Discount
	now       func() time.Time
}

// Default builds the standard catalog.
func Default() *Catalog {
	return New([]Plan{
		{ID: "monthly_premium", Key: "monthly", Name: "Monthly Premium", DurationDays: 30, PriceRupees: 49, PricePaise: 4900, Description: "30 days of unlimited downloads"},
		{ID: "quarterly_premium", Key: "quarterly", Name: "Quarterly Premium", DurationDays: 90, PriceRupees: 129, PricePaise: 12900, Description: "90 days of unlimited downloads"},
		{ID: "yearly_premium", Key: "yearly", Name: "Yearly Premium", DurationDays: 365, PriceRupees: 499, PricePaise: 49900, Description: "365 days of unlimited downloads"},
	}, []Discount{
		{Code: "WELCOME10", Percent: 10, MaxPaise: 5000, ValidUntil: time.Date(2030, 12, 31, 23, 59, 59, 0, time.UTC), Description: "10% off for new users"},
		{Code: "PREMIUM20", Percent: 20, MaxPaise: 10000, ValidUntil: time.Date(2030, 12, 31, 23, 59, 59, 0, time.UTC), Description: "20% off for premium plans"},
	})
}

// New builds a catalog from explicit plan and discount definitions.
func New(plans []Plan, discounts []Discount) *Catalog {
	byCode := make(map[string]Discount, len(discounts))
	for _, d := range discounts {
		byCode[strings.ToUpper(d.Code)] = d
	}
	return &Catalog{
		plans:     append([]Plan(nil), plans...),
		discounts: byCode,
		now:       time.Now,
	}
}

// Get resolves a plan by id ("monthly_premium") or key ("monthly").
func (c *Catalog) Get(idOrKey string) (Plan, bool) {
	for _, p := range c.plans {
		if p.ID == idOrKey || p.Key == idOrKey {
			return p, true
		}
	}
	return Plan{}, false
}

// All returns the plans in display order.
func (c *Catalog) All() []Plan {
	return append([]Plan(nil), c.plans...)
}

// Quote prices a plan with an optional discount code. An unknown or expired
// code is not an error; it simply yields the undiscounted price.
func (c *Catalog) Quote(planID, code string) (Quote, error) {
	plan, ok := c.Get(planID)
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrInvalidPlan, planID)
	}

	quote := Quote{
		Plan:          plan,
		OriginalPaise: plan.PricePaise,
		FinalPaise:    plan.PricePaise,
	}
	if code == "" {
		return quote, nil
	}

	discount, ok := c.discounts[strings.ToUpper(code)]
	if !ok || c.now().After(discount.ValidUntil) {
		return quote, nil
	}

	amount := plan.PricePaise * discount.Percent / 100
	if amount > discount.MaxPaise {
		amount = discount.MaxPaise
	}

	quote.Code = discount.Code
	quote.Applied = true
	quote.DiscountPaise = amount
	quote.FinalPaise = plan.PricePaise - amount
	return quote, nil
}

// FormatList renders the catalog for a chat message.
func (c *Catalog) FormatList() string {
	var b strings.Builder
	for _, p := range c.plans {
		fmt.Fprintf(&b, "• *%s* - ₹%d\n  %s\n\n", p.Name, p.PriceRupees, p.Description)
	}
	return b.String()
}
