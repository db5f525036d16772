package standby

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/hackgods/standby-scheduling/internal/account"
	"github.com/hackgods/standby-scheduling/internal/db"
	"github.com/hackgods/standby-scheduling/internal/scheduling"
)

// memStore serializes transactions and restores confirmations when one fails,
// like a rolled-back Postgres transaction.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	prefs         map[uuid.UUID]Preference
	dnds          map[uuid.UUID]DND
	confirmations map[string]Confirmation
	dndErr        error
}

func newMemStore() *memStore {
	return &memStore{
		prefs:         map[uuid.UUID]Preference{},
		dnds:          map[uuid.UUID]DND{},
		confirmations: map[string]Confirmation{},
	}
}

func (s *memStore) ListEnabledPreferences(ctx context.Context) ([]Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Preference
	for _, p := range s.prefs {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) GetPreferenceByPatient(ctx context.Context, patientID uuid.UUID) (*Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prefs[patientID]
	if !ok {
		return nil, ErrPreferenceNotFound
	}
	return &p, nil
}

func (s *memStore) UpsertPreference(ctx context.Context, p Preference) (*Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.prefs[p.PatientID]; ok {
		p.ID = existing.ID
	} else {
		p.ID = uuid.New()
	}
	s.prefs[p.PatientID] = p
	return &p, nil
}

func (s *memStore) GetDNDByPatient(ctx context.Context, patientID uuid.UUID) (*DND, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dndErr != nil {
		return nil, s.dndErr
	}
	d, ok := s.dnds[patientID]
	if !ok {
		return nil, ErrDNDNotFound
	}
	return &d, nil
}

func (s *memStore) UpsertDND(ctx context.Context, d DND) (*DND, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = uuid.New()
	s.dnds[d.PatientID] = d
	return &d, nil
}

func (s *memStore) InTx(ctx context.Context, fn func(q db.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := make(map[string]Confirmation, len(s.confirmations))
	for k, v := range s.confirmations {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.confirmations = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) InsertConfirmation(ctx context.Context, c Confirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmations[c.Token] = c
	return nil
}

func (s *memStore) ConsumeConfirmation(ctx context.Context, q db.Querier, token string, now time.Time) (*Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.confirmations[token]
	if !ok || c.Used || now.After(c.ExpiresAt) {
		return nil, ErrConfirmationInvalid
	}
	c.Used = true
	c.UsedAt = &now
	s.confirmations[token] = c
	return &c, nil
}

func (s *memStore) ListConfirmationsBySlot(ctx context.Context, slotID uuid.UUID) ([]Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Confirmation
	for _, c := range s.confirmations {
		if c.SlotID == slotID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) PurgeConfirmations(ctx context.Context, expiredBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, c := range s.confirmations {
		if c.ExpiresAt.Before(expiredBefore) {
			delete(s.confirmations, k)
			n++
		}
	}
	return n, nil
}

func (s *memStore) confirmation(token string) Confirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmations[token]
}

// fakeSlots claims slots with the same conditional semantics as the slots table.
type fakeSlots struct {
	mu       sync.Mutex
	status   map[uuid.UUID]scheduling.SlotStatus
	bookings int
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{status: map[uuid.UUID]scheduling.SlotStatus{}}
}

func (f *fakeSlots) open(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = scheduling.SlotOpen
}

func (f *fakeSlots) get(id uuid.UUID) scheduling.SlotStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status[id]
}

func (f *fakeSlots) ClaimSlot(ctx context.Context, q db.Querier, slotID, patientID uuid.UUID) (*scheduling.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status[slotID] != scheduling.SlotOpen {
		return nil, scheduling.ErrSlotNotOpen
	}
	f.status[slotID] = scheduling.SlotBooked
	f.bookings++
	return &scheduling.Booking{ID: uuid.New(), SlotID: slotID, PatientID: patientID, ConfirmedAt: time.Now()}, nil
}

type fakePatients map[uuid.UUID]account.Patient

func (f fakePatients) GetPatientByID(ctx context.Context, id uuid.UUID) (*account.Patient, error) {
	p, ok := f[id]
	if !ok {
		return nil, account.ErrPatientNotFound
	}
	return &p, nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(to, subject, body)
	return args.Error(0)
}
