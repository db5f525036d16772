package standby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/standby-scheduling/internal/scheduling"
	"github.com/hackgods/standby-scheduling/pkg/logging"
)

var ErrInvalidPreference = errors.New("invalid preference")

type StandbyInput struct {
	Enabled                bool
	PreferredLanguages     []string
	PreferredDays          []string
	PreferredTimes         string
	MaxNotificationsPerDay *int // nil keeps the current value
}

type DNDInput struct {
	Enabled           bool
	Days              []string
	TimeRanges        []Window
	TemporarilyPaused bool
	PauseUntil        *time.Time
	StartDate         *time.Time
	EndDate           *time.Time
}

// PreferenceService validates and stores patient standby and DND settings.
type PreferenceService struct {
	store    PreferenceStore
	patients PatientLookup
	logger   *logging.Logger
}

func NewPreferenceService(store PreferenceStore, patients PatientLookup, logger *logging.Logger) *PreferenceService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PreferenceService{store: store, patients: patients, logger: logger}
}

func (s *PreferenceService) GetStandby(ctx context.Context, patientID uuid.UUID) (*Preference, error) {
	return s.store.GetPreferenceByPatient(ctx, patientID)
}

func (s *PreferenceService) GetDND(ctx context.Context, patientID uuid.UUID) (*DND, error) {
	return s.store.GetDNDByPatient(ctx, patientID)
}

// UpdateStandby creates or replaces the patient's standby preference.
func (s *PreferenceService) UpdateStandby(ctx context.Context, patientID uuid.UUID, in StandbyInput) (*Preference, error) {
	if err := s.checkPatient(ctx, patientID); err != nil {
		return nil, err
	}

	days, err := normalizeWeekdays(in.PreferredDays)
	if err != nil {
		return nil, err
	}
	times := strings.TrimSpace(in.PreferredTimes)
	if _, errs := ParseTimeWindows(times); len(errs) > 0 {
		return nil, fmt.Errorf("%w: preferred_times: %v", ErrInvalidPreference, errors.Join(errs...))
	}

	p := Preference{
		PatientID:              patientID,
		Enabled:                in.Enabled,
		PreferredLanguages:     normalizeList(in.PreferredLanguages),
		PreferredDays:          days,
		PreferredTimes:         times,
		MaxNotificationsPerDay: DefaultMaxNotificationsPerDay,
	}

	existing, err := s.store.GetPreferenceByPatient(ctx, patientID)
	switch {
	case err == nil:
		p.MaxNotificationsPerDay = existing.MaxNotificationsPerDay
	case !errors.Is(err, ErrPreferenceNotFound):
		return nil, fmt.Errorf("load standby preference: %w", err)
	}
	if in.MaxNotificationsPerDay != nil {
		if *in.MaxNotificationsPerDay < 1 {
			return nil, fmt.Errorf("%w: max_notifications_per_day must be at least 1", ErrInvalidPreference)
		}
		p.MaxNotificationsPerDay = *in.MaxNotificationsPerDay
	}

	saved, err := s.store.UpsertPreference(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("save standby preference: %w", err)
	}
	s.logger.Info("standby preference updated", "patient_id", patientID, "enabled", saved.Enabled)
	return saved, nil
}

// UpdateDND creates or replaces the patient's do-not-disturb settings.
func (s *PreferenceService) UpdateDND(ctx context.Context, patientID uuid.UUID, in DNDInput) (*DND, error) {
	if err := s.checkPatient(ctx, patientID); err != nil {
		return nil, err
	}

	days, err := normalizeWeekdays(in.Days)
	if err != nil {
		return nil, err
	}
	for _, w := range in.TimeRanges {
		if !w.Start.Valid() || !w.End.Valid() || w.End <= w.Start {
			return nil, fmt.Errorf("%w: time range %s must end after it starts; split overnight ranges in two", ErrInvalidPreference, w)
		}
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return nil, fmt.Errorf("%w: end_date is before start_date", ErrInvalidPreference)
	}

	var ranges string
	if len(in.TimeRanges) > 0 {
		data, err := json.Marshal(in.TimeRanges)
		if err != nil {
			return nil, fmt.Errorf("encode time ranges: %w", err)
		}
		ranges = string(data)
	}

	d := DND{
		PatientID:         patientID,
		Enabled:           in.Enabled,
		Days:              days,
		TimeRanges:        ranges,
		TemporarilyPaused: in.TemporarilyPaused,
		PauseUntil:        in.PauseUntil,
		StartDate:         dateOnlyPtr(in.StartDate),
		EndDate:           dateOnlyPtr(in.EndDate),
	}

	saved, err := s.store.UpsertDND(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("save dnd preference: %w", err)
	}
	s.logger.Info("dnd preference updated", "patient_id", patientID, "enabled", saved.Enabled)
	return saved, nil
}

func (s *PreferenceService) checkPatient(ctx context.Context, patientID uuid.UUID) error {
	if s.patients == nil {
		return nil
	}
	if _, err := s.patients.GetPatientByID(ctx, patientID); err != nil {
		return err
	}
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// normalizeWeekdays canonicalizes names such as "saturday" to "Saturday".
func normalizeWeekdays(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, raw := range normalizeList(in) {
		day, ok := parseWeekday(raw)
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrInvalidPreference, raw)
		}
		out = append(out, day.String())
	}
	return out, nil
}

func parseWeekday(s string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, true
		}
	}
	return 0, false
}

func dateOnlyPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := scheduling.DateOnly(*t)
	return &d
}
