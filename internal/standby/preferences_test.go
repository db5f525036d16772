package standby

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/standby-scheduling/internal/account"
)

func newPreferenceFixture(t *testing.T) (*PreferenceService, *memStore, uuid.UUID) {
	t.Helper()
	store := newMemStore()
	patient := uuid.New()
	svc := NewPreferenceService(store, fakePatients{patient: {ID: patient, Email: "p@example.com"}}, nil)
	return svc, store, patient
}

func TestUpdateStandbyNormalizes(t *testing.T) {
	svc, _, patient := newPreferenceFixture(t)
	ctx := context.Background()

	saved, err := svc.UpdateStandby(ctx, patient, StandbyInput{
		Enabled:            true,
		PreferredLanguages: []string{" English ", "", "French"},
		PreferredDays:      []string{"monday", "FRIDAY"},
		PreferredTimes:     " 08:00-12:00 ",
	})
	require.NoError(t, err)

	assert.True(t, saved.Enabled)
	assert.Equal(t, []string{"English", "French"}, saved.PreferredLanguages)
	assert.Equal(t, []string{"Monday", "Friday"}, saved.PreferredDays)
	assert.Equal(t, "08:00-12:00", saved.PreferredTimes)
	assert.Equal(t, DefaultMaxNotificationsPerDay, saved.MaxNotificationsPerDay)

	three := 3
	_, err = svc.UpdateStandby(ctx, patient, StandbyInput{Enabled: true, MaxNotificationsPerDay: &three})
	require.NoError(t, err)
	again, err := svc.UpdateStandby(ctx, patient, StandbyInput{Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, 3, again.MaxNotificationsPerDay, "an omitted cap keeps the stored one")

	got, err := svc.GetStandby(ctx, patient)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
}

func TestUpdateStandbyRejectsInvalidInput(t *testing.T) {
	svc, _, patient := newPreferenceFixture(t)
	ctx := context.Background()
	zero := 0

	cases := []StandbyInput{
		{PreferredTimes: "08:00-12:00,lunchtime"},
		{PreferredTimes: `[{"from":"12:00","to":"08:00"}]`},
		{PreferredDays: []string{"Funday"}},
		{MaxNotificationsPerDay: &zero},
	}
	for _, in := range cases {
		_, err := svc.UpdateStandby(ctx, patient, in)
		assert.ErrorIs(t, err, ErrInvalidPreference)
	}

	_, err := svc.UpdateStandby(ctx, uuid.New(), StandbyInput{})
	assert.ErrorIs(t, err, account.ErrPatientNotFound)
}

func TestGetStandbyNotFound(t *testing.T) {
	svc, _, patient := newPreferenceFixture(t)
	_, err := svc.GetStandby(context.Background(), patient)
	assert.ErrorIs(t, err, ErrPreferenceNotFound)

	_, err = svc.GetDND(context.Background(), patient)
	assert.ErrorIs(t, err, ErrDNDNotFound)
}

func TestUpdateDNDStoresRangesTheEvaluatorReads(t *testing.T) {
	svc, _, patient := newPreferenceFixture(t)
	ctx := context.Background()

	saved, err := svc.UpdateDND(ctx, patient, DNDInput{
		Enabled:    true,
		Days:       []string{"sunday"},
		TimeRanges: []Window{{Start: clock("12:00"), End: clock("13:00")}},
		StartDate:  timePtr(time.Date(2026, 6, 1, 15, 30, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Sunday"}, saved.Days)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), *saved.StartDate)

	ranges, errs := ParseDNDRanges(saved.TimeRanges)
	assert.Empty(t, errs)
	assert.Equal(t, []Window{{Start: clock("12:00"), End: clock("13:00")}}, ranges)

	got, err := svc.GetDND(ctx, patient)
	require.NoError(t, err)
	assert.True(t, got.Enabled)
}

func TestUpdateDNDRejectsInvalidInput(t *testing.T) {
	svc, _, patient := newPreferenceFixture(t)
	ctx := context.Background()

	_, err := svc.UpdateDND(ctx, patient, DNDInput{
		TimeRanges: []Window{{Start: clock("22:00"), End: clock("07:00")}},
	})
	assert.ErrorIs(t, err, ErrInvalidPreference)

	_, err = svc.UpdateDND(ctx, patient, DNDInput{
		StartDate: timePtr(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)),
		EndDate:   timePtr(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)),
	})
	assert.ErrorIs(t, err, ErrInvalidPreference)
}

func TestMessageBody(t *testing.T) {
	spec := "Dermatology"
	slot := openSlot(saturday, "09:00", "09:30", "English")
	slot.Specialization = &spec

	msg := BuildMessage(account.Patient{Name: "Ada"}, slot, "https://x/confirm?token=t", 90*time.Minute)
	assert.Equal(t, MessageSubject, msg.Subject)
	assert.Contains(t, msg.Body, "Hi Ada,")
	assert.Contains(t, msg.Body, "A Dermatology slot opened on Saturday, 6 June 2026 from 09:00 to 09:30.")
	assert.Contains(t, msg.Body, "expires in 90 minutes")
	assert.Contains(t, msg.Body, "https://x/confirm?token=t")

	msg = BuildMessage(account.Patient{}, openSlot(saturday, "09:00", "09:30", "English"), "l", time.Hour)
	assert.Contains(t, msg.Body, "Hi there,")
	assert.Contains(t, msg.Body, "A slot opened")
	assert.Contains(t, msg.Body, "expires in 1 hour")
}
