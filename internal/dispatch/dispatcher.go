package dispatch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/edge-alert/internal/config"
	"github.com/oshokin/edge-alert/internal/logger"
)

// Alerter is the alert output the dispatcher drives.
type Alerter interface {
	TriggerDanger(ctx context.Context, duration time.Duration)
	Speak(ctx context.Context, text string)
	PlayWAV(ctx context.Context, audio []byte) bool
}

// Outcome tells what Handle did with an event.
type Outcome string

const (
	// OutcomeIgnored means the event was not a danger.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeCooldown means the event fell inside the cooldown window.
	OutcomeCooldown Outcome = "cooldown"
	// OutcomePlayed means server audio was played.
	OutcomePlayed Outcome = "played"
	// OutcomeSpoken means text was spoken.
	OutcomeSpoken Outcome = "spoken"
	// OutcomeSilent means the pulse fired but nothing was said.
	OutcomeSilent Outcome = "silent"
)

// Options configure a Dispatcher.
type Options struct {
	// AlertDuration is the danger pulse length.
	AlertDuration time.Duration
	// Cooldown is the minimum spacing between pulses.
	Cooldown time.Duration
	// ServerWAVOnly disables every text fallback.
	ServerWAVOnly bool
	// SummaryFallback speaks the local summary when the server sends no text.
	SummaryFallback bool
	// SourceID names this device in payloads.
	SourceID string
}

// OptionsFromConfig copies the dispatcher settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		AlertDuration:   cfg.AlertDuration,
		Cooldown:        cfg.DangerCooldown,
		ServerWAVOnly:   cfg.ServerWAVOnly,
		SummaryFallback: cfg.TTSEventSummaryFallback,
		SourceID:        cfg.SourceID,
	}
}

// Dispatcher handles events one at a time.
type Dispatcher struct {
	alerter Alerter
	opts    Options
	now     func() time.Time

	mu         sync.Mutex
	lastDanger time.Time
	fired      bool
}

// New returns a dispatcher driving alerter.
func New(alerter Alerter, opts Options) *Dispatcher {
	return &Dispatcher{
		alerter: alerter,
		opts:    opts,
		now:     time.Now,
	}
}

// Handle fires the alert for a danger event and speaks or plays the acknowledgement.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) Outcome {
	ctx = logger.WithName(ctx, "dispatch")

	if !ev.IsDanger {
		logger.DebugKV(ctx, "Event is not a danger", "confidence", ev.Confidence)
		return OutcomeIgnored
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.fired && now.Sub(d.lastDanger) < d.opts.Cooldown {
		logger.Info(ctx, "Danger detected but skipped by cooldown")
		return OutcomeCooldown
	}

	d.lastDanger = now
	d.fired = true

	payload := d.payload(ev, now)
	ctx = logger.WithKV(ctx, "event_id", payload.EventID)

	logger.WarnKV(ctx, "Danger detected", "summary", ev.Summary, "confidence", ev.Confidence)

	d.alerter.TriggerDanger(ctx, d.opts.AlertDuration)

	return d.acknowledge(ctx, ev, payload)
}

// acknowledge picks what to say: server WAV, then server text, then the local summary.
func (d *Dispatcher) acknowledge(ctx context.Context, ev Event, payload Payload) Outcome {
	if ev.Ack == nil {
		logger.ErrorKV(ctx, "Server send failed", "payload", payload)

		if d.opts.ServerWAVOnly {
			logger.Warn(ctx, "Server WAV only, text TTS fallback skipped")
			return OutcomeSilent
		}

		return d.speakSummary(ctx, ev.Summary)
	}

	if audio := ev.Ack.TTSWAV(); len(audio) > 0 {
		if d.alerter.PlayWAV(ctx, audio) {
			return OutcomePlayed
		}

		logger.Warn(ctx, "Server WAV playback failed, falling back to text TTS")

		if d.opts.ServerWAVOnly {
			logger.Warn(ctx, "Server WAV only, text TTS fallback skipped")
			return OutcomeSilent
		}
	} else if d.opts.ServerWAVOnly {
		logger.Warn(ctx, "Server acknowledgement had no WAV, text TTS skipped in server WAV only mode")
		return OutcomeSilent
	}

	if text := ev.Ack.TTSSummary(); text != "" {
		d.alerter.Speak(ctx, text)
		return OutcomeSpoken
	}

	return d.speakSummary(ctx, ev.Summary)
}

func (d *Dispatcher) speakSummary(ctx context.Context, summary string) Outcome {
	summary = strings.TrimSpace(summary)
	if !d.opts.SummaryFallback || summary == "" {
		logger.Info(ctx, "No TTS summary returned by server")
		return OutcomeSilent
	}

	d.alerter.Speak(ctx, summary)

	return OutcomeSpoken
}

func (d *Dispatcher) payload(ev Event, now time.Time) Payload {
	return Payload{
		EventID:    NewEventID(),
		Timestamp:  now.UTC(),
		Source:     d.opts.SourceID,
		IsDanger:   true,
		Summary:    ev.Summary,
		Confidence: ev.Confidence,
		Metadata:   ev.Metadata,
	}
}

// NewEventID returns an id of the form evt_<12 hex digits>.
func NewEventID() string {
	id := uuid.New()
	return "evt_" + strings.ReplaceAll(id.String(), "-", "")[:12]
}
