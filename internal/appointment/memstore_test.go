package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/notification"
)

// memRepo is an in-memory Repository. InTx serialises transactions and
// restores a snapshot when fn fails, which is the behaviour the service relies
// on from Postgres.
type memRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex

	owners       map[uuid.UUID]string
	patients     map[uuid.UUID]*Patient
	doctors      map[uuid.UUID]*Doctor
	appointments map[uuid.UUID]*Appointment

	lastFilter ListFilter
	failInsert error
	failClaim  error
}

func newMemRepo() *memRepo {
	return &memRepo{
		owners:       make(map[uuid.UUID]string),
		patients:     make(map[uuid.UUID]*Patient),
		doctors:      make(map[uuid.UUID]*Doctor),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

func (m *memRepo) addOwner(name string) uuid.UUID {
	id := uuid.New()
	m.owners[id] = name
	return id
}

func (m *memRepo) addPatient(owner uuid.UUID, name string) *Patient {
	p := &Patient{ID: uuid.New(), OwnerID: owner, Name: name, Species: "dog"}
	m.patients[p.ID] = p
	return p
}

func (m *memRepo) addDoctor(name string, availability Availability) *Doctor {
	d := &Doctor{ID: uuid.New(), Name: name, Availability: availability}
	m.doctors[d.ID] = d
	return d
}

func (m *memRepo) setStatus(id uuid.UUID, status AppointmentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[id].Status = status
}

func (m *memRepo) InTx(ctx context.Context, fn func(tx Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := make(map[uuid.UUID]*Appointment, len(m.appointments))
	for id, a := range m.appointments {
		cp := *a
		snapshot[id] = &cp
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.appointments = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memRepo) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memRepo) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) view(a *Appointment) AppointmentView {
	p := m.patients[a.PatientID]
	return AppointmentView{
		Appointment:    *a,
		PatientName:    p.Name,
		PatientSpecies: p.Species,
		OwnerID:        p.OwnerID,
		OwnerName:      m.owners[p.OwnerID],
		DoctorName:     m.doctors[a.DoctorID].Name,
	}
}

func (m *memRepo) GetAppointmentView(ctx context.Context, id uuid.UUID) (*AppointmentView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	v := m.view(a)
	return &v, nil
}

func (m *memRepo) ListAppointments(ctx context.Context, f ListFilter) ([]AppointmentView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = f

	var out []AppointmentView
	for _, a := range m.appointments {
		v := m.view(a)
		if f.OwnerID != nil && v.OwnerID != *f.OwnerID {
			continue
		}
		if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
			continue
		}
		if f.DateFrom != nil && a.Date.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && a.Date.After(*f.DateTo) {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Time > out[j].Time
	})
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memRepo) FindActiveInSlot(ctx context.Context, slot Slot) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appointments {
		if a.Status != StatusCancelled && a.DoctorID == slot.DoctorID && a.Date.Equal(slot.Date) && a.Time == slot.Time {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *memRepo) InsertAppointment(ctx context.Context, a *Appointment) error {
	if m.failInsert != nil {
		return m.failInsert
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *memRepo) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (m *memRepo) ClaimDueReminders(ctx context.Context, day time.Time) ([]Reminder, error) {
	if m.failClaim != nil {
		return nil, m.failClaim
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var out []Reminder
	for _, a := range m.appointments {
		if a.Status != StatusScheduled || !a.Date.Equal(day) || a.ReminderSentAt != nil {
			continue
		}
		a.ReminderSentAt = &now
		p := m.patients[a.PatientID]
		out = append(out, Reminder{
			AppointmentID: a.ID,
			OwnerID:       p.OwnerID,
			PatientName:   p.Name,
			DoctorName:    m.doctors[a.DoctorID].Name,
			Date:          a.Date,
			Time:          a.Time,
		})
	}
	return out, nil
}

type sentNotification struct {
	recipient uuid.UUID
	message   string
	category  notification.Category
}

type notifierStub struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *notifierStub) Notify(ctx context.Context, recipient uuid.UUID, message string, category notification.Category) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{recipient, message, category})
}
