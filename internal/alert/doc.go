// Package alert is the facade the rest of the appliance talks to: it turns
// a hazard into one bounded danger pulse on the indicator hardware and
// forwards speech requests to the speech output.
package alert
