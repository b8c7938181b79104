package models

import "fmt"

// Tier is a stage in the scatter/gather aggregation tree.
type Tier string

const (
	TierUnset  Tier = ""
	TierWorker Tier = "worker"
	TierLocal  Tier = "local_collector"
	TierGlobal Tier = "global_collector"
)

// Tiers lists the executable tiers in pipeline order.
func Tiers() []Tier {
	return []Tier{TierWorker, TierLocal, TierGlobal}
}

// ParseTier converts a tier name into a Tier.
func ParseTier(name string) (Tier, error) {
	switch Tier(name) {
	case TierWorker, TierLocal, TierGlobal:
		return Tier(name), nil
	}

	return TierUnset, fmt.Errorf("%w: %q", ErrUnknownTier, name)
}

// Valid reports whether t is one of the executable tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierWorker, TierLocal, TierGlobal:
		return true
	case TierUnset:
		return false
	}

	return false
}

// Next returns the tier that consumes t's outputs, or TierUnset for the global tier.
func (t Tier) Next() Tier {
	switch t {
	case TierWorker:
		return TierLocal
	case TierLocal:
		return TierGlobal
	case TierGlobal, TierUnset:
		return TierUnset
	}

	return TierUnset
}

// Suffix is appended to node and port names of expanded copies.
func (t Tier) Suffix() string {
	switch t {
	case TierWorker:
		return "_worker"
	case TierLocal:
		return "_localCollector"
	case TierGlobal:
		return "_globalCollector"
	case TierUnset:
		return ""
	}

	return ""
}

func (t Tier) String() string {
	if t == TierUnset {
		return "unset"
	}

	return string(t)
}
