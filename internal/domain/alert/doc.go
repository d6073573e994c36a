// Package alert contains the core domain types of the alert output subsystem.
//
// It defines IndicatorState (idle or danger), PinMode (BCM or BOARD header
// numbering) and PinPlan, the normalized set of pins a backend is asked to
// drive, with the guarantee that no pin serves as danger and safe LED at once.
package alert
