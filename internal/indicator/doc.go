// Package indicator drives the visual and audible alert hardware: a danger
// LED group, a safe LED group, an optional buzzer and an optional external
// siren command.
//
// The hardware backend is chosen once, in New, from an ordered list of
// factories. With the default list a BCM configuration tries the gpiomem
// driver (go-rpio) first and periph second; a BOARD configuration goes to
// periph directly. If nothing usable is found the output degrades to a
// siren-only mode when a siren command exists, and to simulation otherwise.
// Construction never fails and no method returns an error: hardware faults
// are logged and the affected pin is skipped.
package indicator
