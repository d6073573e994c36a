package alert

import "slices"

// PinPlan is the set of pins requested from an indicator backend.
type PinPlan struct {
	// Danger lists the LED pins lit while in danger, in configuration order.
	Danger []int
	// Safe lists the LED pins lit while idle, disjoint from Danger.
	Safe []int
	// Buzzer is the buzzer pin, or nil when no buzzer is wired.
	Buzzer *int
}

// NewPinPlan deduplicates both LED lists, keeping first occurrences, and
// removes from the safe list every pin that is also a danger pin.
// The removed pins are returned so the caller can report them.
func NewPinPlan(danger, safe []int, buzzer *int) (PinPlan, []int) {
	plan := PinPlan{
		Danger: Dedup(danger),
		Buzzer: cloneInt(buzzer),
	}

	var overlap []int

	for _, pin := range Dedup(safe) {
		if slices.Contains(plan.Danger, pin) {
			overlap = append(overlap, pin)
			continue
		}

		plan.Safe = append(plan.Safe, pin)
	}

	return plan, overlap
}

// All returns every pin of the plan: danger, safe, then buzzer, without duplicates.
func (p PinPlan) All() []int {
	all := make([]int, 0, len(p.Danger)+len(p.Safe)+1)
	all = append(all, p.Danger...)
	all = append(all, p.Safe...)

	if p.Buzzer != nil {
		all = append(all, *p.Buzzer)
	}

	return Dedup(all)
}

// Dedup returns pins without repeats, preserving the order of first occurrence.
func Dedup(pins []int) []int {
	if len(pins) == 0 {
		return nil
	}

	seen := make(map[int]struct{}, len(pins))
	result := make([]int, 0, len(pins))

	for _, pin := range pins {
		if _, ok := seen[pin]; ok {
			continue
		}

		seen[pin] = struct{}{}
		result = append(result, pin)
	}

	return result
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}

	c := *v

	return &c
}
