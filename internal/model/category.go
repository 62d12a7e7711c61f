package model

import "strings"

// Category is the coarse classification assigned to a raw meeting.
type Category string

const (
	CategorySales    Category = "sales"
	CategoryPartner  Category = "partner"
	CategoryInternal Category = "internal"
	CategoryOther    Category = "other"
)

// AllCategories returns every valid category in report order.
func AllCategories() []Category {
	return []Category{CategorySales, CategoryPartner, CategoryInternal, CategoryOther}
}

// ParseCategory maps a token to a Category. ok is false for anything outside
// the closed set.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategorySales, CategoryPartner, CategoryInternal, CategoryOther:
		return c, true
	default:
		return CategoryOther, false
	}
}

// CallType describes the stage of a sales conversation.
type CallType string

const (
	CallTypeDiscovery          CallType = "discovery"
	CallTypeTechnicalDeepDive  CallType = "technical_deep_dive"
	CallTypePricingNegotiation CallType = "pricing_negotiation"
	CallTypeFollowUp           CallType = "follow_up"
	CallTypeClosing            CallType = "closing"
)

// ParseCallType returns the matching call type, or CallTypeDiscovery.
func ParseCallType(s string) (CallType, bool) {
	c := CallType(normalizeToken(s))
	switch c {
	case CallTypeDiscovery, CallTypeTechnicalDeepDive, CallTypePricingNegotiation, CallTypeFollowUp, CallTypeClosing:
		return c, true
	default:
		return CallTypeDiscovery, false
	}
}

// Offering is the service pitched on a call.
type Offering string

const (
	OfferingAudit            Offering = "audit"
	OfferingRetainer         Offering = "retainer"
	OfferingIncidentResponse Offering = "incident_response"
	OfferingNone             Offering = "none"
)

// ParseOffering returns the matching offering, or OfferingNone.
func ParseOffering(s string) (Offering, bool) {
	o := Offering(normalizeToken(s))
	switch o {
	case OfferingAudit, OfferingRetainer, OfferingIncidentResponse, OfferingNone:
		return o, true
	default:
		return OfferingNone, false
	}
}

// Outcome is the overall result of a call.
type Outcome string

const (
	OutcomePositive   Outcome = "positive"
	OutcomeNeutral    Outcome = "neutral"
	OutcomeNegative   Outcome = "negative"
	OutcomeClosedWon  Outcome = "closed_won"
	OutcomeClosedLost Outcome = "closed_lost"
)

// ParseOutcome returns the matching outcome, or OutcomeNeutral.
func ParseOutcome(s string) (Outcome, bool) {
	o := Outcome(normalizeToken(s))
	switch o {
	case OutcomePositive, OutcomeNeutral, OutcomeNegative, OutcomeClosedWon, OutcomeClosedLost:
		return o, true
	default:
		return OutcomeNeutral, false
	}
}

// Effectiveness rates how well a counter-response landed.
type Effectiveness string

const (
	EffectivenessEffective          Effectiveness = "effective"
	EffectivenessPartiallyEffective Effectiveness = "partially_effective"
	EffectivenessIneffective        Effectiveness = "ineffective"
	EffectivenessUnknown            Effectiveness = "unknown"
)

// ParseEffectiveness returns the matching value, or EffectivenessUnknown.
func ParseEffectiveness(s string) (Effectiveness, bool) {
	e := Effectiveness(normalizeToken(s))
	switch e {
	case EffectivenessEffective, EffectivenessPartiallyEffective, EffectivenessIneffective, EffectivenessUnknown:
		return e, true
	default:
		return EffectivenessUnknown, false
	}
}

// normalizeToken lower-cases and maps spaces and dashes to underscores so
// "Follow-up" and "follow up" both match follow_up.
func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
