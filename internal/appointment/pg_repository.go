package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/vetclinic-scheduling/internal/db"
)

const slotIndex = "appointments_slot_active_uq"

type PgRepository struct {
	pool *pgxpool.Pool
	q    db.DBTX
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, q: pool}
}

func (r *PgRepository) InTx(ctx context.Context, fn func(tx Store) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&PgRepository{pool: r.pool, q: tx})
	})
}

// Helpers

const appointmentColumns = `a.id, a.patient_id, a.doctor_id, a.appointment_date,
	to_char(a.appointment_time, 'HH24:MI'), a.reason, a.status, a.created_by,
	a.reminder_sent_at, a.created_at, a.updated_at`

func appointmentDest(a *Appointment) []any {
	return []any{
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&a.Time,
		&a.Reason,
		&a.Status,
		&a.CreatedBy,
		&a.ReminderSentAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(appointmentDest(&a)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanAppointmentView(row pgx.Row) (*AppointmentView, error) {
	var v AppointmentView
	dest := append(appointmentDest(&v.Appointment),
		&v.PatientName,
		&v.PatientSpecies,
		&v.OwnerID,
		&v.OwnerName,
		&v.DoctorName,
	)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &v, nil
}

const viewSelect = `
	SELECT ` + appointmentColumns + `,
	       p.name, p.species, p.owner_id, u.name, d.name
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN users u ON u.id = p.owner_id
	JOIN doctors d ON d.id = a.doctor_id`

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := r.q.QueryRow(ctx, `
		SELECT id, owner_id, name, species, breed, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Species, &p.Breed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	var d Doctor
	err := r.q.QueryRow(ctx, `
		SELECT id, name, specialty, availability, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id).Scan(&d.ID, &d.Name, &d.Specialty, &d.Availability, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentView(ctx context.Context, id uuid.UUID) (*AppointmentView, error) {
	row := r.q.QueryRow(ctx, viewSelect+` WHERE a.id = $1`, id)
	return scanAppointmentView(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f ListFilter) ([]AppointmentView, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.OwnerID != nil {
		add("p.owner_id = $%d", *f.OwnerID)
	}
	if f.DoctorID != nil {
		add("a.doctor_id = $%d", *f.DoctorID)
	}
	if f.DateFrom != nil {
		add("a.appointment_date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("a.appointment_date <= $%d", *f.DateTo)
	}
	if f.Status != nil {
		add("a.status = $%d", string(*f.Status))
	}

	query := viewSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(`
	ORDER BY a.appointment_date DESC, a.appointment_time DESC, a.created_at DESC
	LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentView
	for rows.Next() {
		v, err := scanAppointmentView(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) FindActiveInSlot(ctx context.Context, slot Slot) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.doctor_id = $1
		  AND a.appointment_date = $2
		  AND a.appointment_time = $3::time
		  AND a.status <> 'cancelled'
		LIMIT 1
	`, slot.DoctorID, slot.Date, slot.Time)
	return scanAppointment(row)
}

func (r *PgRepository) InsertAppointment(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	err := r.q.QueryRow(ctx, `
		INSERT INTO appointments
			(id, patient_id, doctor_id, appointment_date, appointment_time, reason, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::time, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at
	`, a.ID, a.PatientID, a.DoctorID, a.Date, a.Time, a.Reason, a.Status, a.CreatedBy).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, slotIndex) {
			return fmt.Errorf("%w: %s", ErrSlotTaken, a.Slot())
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE appointments a
		SET status = $2,
		    updated_at = now()
		WHERE a.id = $1
		  AND a.status = $3
		RETURNING `+appointmentColumns, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) ClaimDueReminders(ctx context.Context, day time.Time) ([]Reminder, error) {
	rows, err := r.q.Query(ctx, `
		UPDATE appointments a
		SET reminder_sent_at = now()
		FROM patients p, doctors d
		WHERE p.id = a.patient_id
		  AND d.id = a.doctor_id
		  AND a.status = 'scheduled'
		  AND a.appointment_date = $1
		  AND a.reminder_sent_at IS NULL
		RETURNING a.id, p.owner_id, p.name, d.name, a.appointment_date, to_char(a.appointment_time, 'HH24:MI')
	`, day)
	if err != nil {
		return nil, fmt.Errorf("claim reminders: %w", err)
	}
	defer rows.Close()

	var result []Reminder
	for rows.Next() {
		var rm Reminder
		if err := rows.Scan(&rm.AppointmentID, &rm.OwnerID, &rm.PatientName, &rm.DoctorName, &rm.Date, &rm.Time); err != nil {
			return nil, err
		}
		result = append(result, rm)
	}
	return result, rows.Err()
}
