package standby

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/standby-scheduling/internal/events"
	"github.com/hackgods/standby-scheduling/internal/observability/metrics"
	"github.com/hackgods/standby-scheduling/internal/scheduling"
	"github.com/hackgods/standby-scheduling/pkg/logging"
)

var ErrNoContactAddress = errors.New("patient has no email address")

type OutcomeKind string

const (
	Matched OutcomeKind = "matched"
	Skipped OutcomeKind = "skipped"
	Failed  OutcomeKind = "failed"
)

// Reason explains a Skipped or Failed outcome.
type Reason string

const (
	SkipLanguage     Reason = "language"
	SkipPreferredDay Reason = "preferred_day"
	SkipTimeWindow   Reason = "time_window"
	SkipDNDPaused    Reason = "dnd_paused"
	SkipDNDDay       Reason = "dnd_day"
	SkipDNDTime      Reason = "dnd_time"
	SkipDailyCap     Reason = "daily_cap"

	FailDNDLookup     Reason = "dnd_lookup"
	FailPatientLookup Reason = "patient_lookup"
	FailIssueToken    Reason = "issue_token"
	FailSend          Reason = "send"
	FailPanic         Reason = "panic"
)

// Outcome is the result of evaluating one standby preference against a slot.
type Outcome struct {
	Preference Preference
	Kind       OutcomeKind
	Reason     Reason
	Token      string
	Err        error
}

// Options toggles filters that the stored preference declares but that are
// not applied unless asked for.
type Options struct {
	EnforcePreferredDays bool
	EnforceDailyCap      bool
	FrontendURL          string
}

type MatcherDeps struct {
	Preferences PreferenceStore
	Patients    PatientLookup
	Issuer      TokenIssuer
	Notifier    Notifier
	Counter     DailyCounter // required only with EnforceDailyCap
	Events      *events.Recorder
	Metrics     *metrics.StandbyMetrics
	Logger      *logging.Logger
}

// Matcher notifies standby patients when a slot opens.
type Matcher struct {
	deps MatcherDeps
	opts Options
	now  func() time.Time
}

func NewMatcher(deps MatcherDeps, opts Options) *Matcher {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	opts.FrontendURL = strings.TrimRight(opts.FrontendURL, "/")
	return &Matcher{deps: deps, opts: opts, now: time.Now}
}

// OnSlotOpened is the scheduling.SlotOpenedFunc hook. It never fails the caller.
func (m *Matcher) OnSlotOpened(ctx context.Context, slot scheduling.Slot) {
	outcomes, err := m.Match(ctx, slot)
	if err != nil {
		m.deps.Logger.Error("standby matching aborted", "slot_id", slot.ID, "error", err)
		return
	}

	matched := 0
	for _, o := range outcomes {
		if o.Kind == Matched {
			matched++
		}
	}
	m.deps.Logger.Info("standby matching finished",
		"slot_id", slot.ID,
		"evaluated", len(outcomes),
		"notified", matched,
	)
}

// Match evaluates every enabled preference against slot. A slot that is not
// open yields no outcomes. Per-patient problems are reported as Failed
// outcomes; only failing to list preferences returns an error.
func (m *Matcher) Match(ctx context.Context, slot scheduling.Slot) ([]Outcome, error) {
	if !slot.IsOpen() {
		return nil, nil
	}

	start := time.Now()
	defer func() {
		m.deps.Metrics.ObservePass(time.Since(start).Seconds())
	}()

	prefs, err := m.deps.Preferences.ListEnabledPreferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("list standby preferences: %w", err)
	}

	outcomes := make([]Outcome, 0, len(prefs))
	for _, p := range prefs {
		out := m.evaluate(ctx, slot, p)
		m.observe(slot, out)
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func (m *Matcher) evaluate(ctx context.Context, slot scheduling.Slot, p Preference) (out Outcome) {
	out = Outcome{Preference: p}
	defer func() {
		if r := recover(); r != nil {
			out.Kind, out.Reason, out.Err = Failed, FailPanic, fmt.Errorf("panic: %v", r)
		}
	}()

	skip := func(reason Reason) Outcome {
		out.Kind, out.Reason = Skipped, reason
		return out
	}
	fail := func(reason Reason, err error) Outcome {
		out.Kind, out.Reason, out.Err = Failed, reason, err
		return out
	}

	// Languages compare case-insensitively after trimming, so "english " matches "English".
	if !containsFold(p.PreferredLanguages, slot.Language) {
		return skip(SkipLanguage)
	}
	if m.opts.EnforcePreferredDays && !containsFold(p.PreferredDays, slot.Weekday().String()) {
		return skip(SkipPreferredDay)
	}

	windows, errs := ParseTimeWindows(p.PreferredTimes)
	for _, err := range errs {
		m.deps.Logger.Warn("dropping malformed preferred time window", "patient_id", p.PatientID, "error", err)
	}
	if !AnyOverlap(windows, slot.StartTime, slot.EndTime) {
		return skip(SkipTimeWindow)
	}

	dnd, err := m.deps.Preferences.GetDNDByPatient(ctx, p.PatientID)
	if err != nil && !errors.Is(err, ErrDNDNotFound) {
		return fail(FailDNDLookup, err)
	}
	reason, errs := dnd.Blocks(slot, m.now())
	for _, err := range errs {
		m.deps.Logger.Warn("ignoring malformed dnd time range", "patient_id", p.PatientID, "error", err)
	}
	if reason != "" {
		return skip(reason)
	}

	if m.opts.EnforceDailyCap && m.deps.Counter != nil && p.MaxNotificationsPerDay > 0 {
		day := m.now()
		n, err := m.deps.Counter.Increment(ctx, p.PatientID, day)
		if err != nil {
			m.deps.Logger.Warn("daily notification counter unavailable, not capping", "patient_id", p.PatientID, "error", err)
		} else {
			// Only a delivered notification keeps its unit of the quota.
			defer func() {
				if out.Kind != Matched {
					m.releaseQuota(ctx, p.PatientID, day)
				}
			}()
			if n > int64(p.MaxNotificationsPerDay) {
				return skip(SkipDailyCap)
			}
		}
	}

	patient, err := m.deps.Patients.GetPatientByID(ctx, p.PatientID)
	if err != nil {
		return fail(FailPatientLookup, err)
	}
	if strings.TrimSpace(patient.Email) == "" {
		return fail(FailPatientLookup, ErrNoContactAddress)
	}

	conf, err := m.deps.Issuer.Issue(ctx, slot.ID, p.PatientID)
	if err != nil {
		return fail(FailIssueToken, err)
	}
	out.Token = conf.Token

	msg := BuildMessage(*patient, slot, m.ConfirmLink(conf.Token), conf.ExpiresAt.Sub(conf.CreatedAt))
	if err := m.deps.Notifier.Send(ctx, patient.Email, msg.Subject, msg.Body); err != nil {
		return fail(FailSend, err)
	}

	m.deps.Events.Record(ctx, events.StandbyNotified, &slot.ID, &p.PatientID, map[string]any{
		"expires_at": conf.ExpiresAt.Format(time.RFC3339),
	})
	out.Kind = Matched
	return out
}

func (m *Matcher) releaseQuota(ctx context.Context, patientID uuid.UUID, day time.Time) {
	if err := m.deps.Counter.Release(ctx, patientID, day); err != nil {
		m.deps.Logger.Warn("could not release daily notification quota", "patient_id", patientID, "error", err)
	}
}

// ConfirmLink builds the link a patient follows to redeem token.
func (m *Matcher) ConfirmLink(token string) string {
	return m.opts.FrontendURL + "/confirm?token=" + url.QueryEscape(token)
}

func (m *Matcher) observe(slot scheduling.Slot, out Outcome) {
	m.deps.Metrics.ObserveOutcome(string(out.Kind), string(out.Reason))

	log := m.deps.Logger.With("slot_id", slot.ID, "patient_id", out.Preference.PatientID)
	switch out.Kind {
	case Matched:
		log.Info("standby patient notified")
	case Skipped:
		log.Debug("standby patient skipped", "reason", out.Reason)
	case Failed:
		log.Error("standby notification failed", "reason", out.Reason, "error", out.Err)
	}
}

// containsFold reports whether set is empty or holds v, ignoring case and padding.
func containsFold(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	v = strings.TrimSpace(v)
	for _, s := range set {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return true
		}
	}
	return false
}
