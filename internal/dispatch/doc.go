// Package dispatch turns hazard detections into alerts: it applies the
// danger cooldown, fires the danger pulse, and picks what to say from the
// server acknowledgement, preferring server-rendered audio over text.
package dispatch
