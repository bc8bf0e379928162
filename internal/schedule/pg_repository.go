package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanTemplate(row pgx.Row) (*WorkTemplate, error) {
	var t WorkTemplate
	var weekday int
	var breakStart, breakEnd *string

	err := row.Scan(
		&t.ID,
		&t.VeterinarianID,
		&weekday,
		&t.WorkStart,
		&t.WorkEnd,
		&breakStart,
		&breakEnd,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	t.Weekday = time.Weekday(weekday)
	t.BreakStart = breakStart
	t.BreakEnd = breakEnd
	return &t, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var ref *uuid.UUID

	err := row.Scan(
		&s.ID,
		&s.VeterinarianID,
		&s.StartAt,
		&s.EndAt,
		&s.State,
		&ref,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.AppointmentRef = ref
	return &s, nil
}

func scanOccupation(row pgx.Row) (*Occupation, error) {
	var o Occupation
	var ref *uuid.UUID
	var note *string

	err := row.Scan(
		&o.ID,
		&o.VeterinarianID,
		&o.StartAt,
		&o.EndAt,
		&o.Kind,
		&ref,
		&note,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOccupationConflict
		}
		return nil, err
	}

	o.ExternalRef = ref
	if note != nil {
		o.Note = *note
	}
	return &o, nil
}

// Interface methods

func (r *PgRepository) UpsertTemplate(ctx context.Context, tpl WorkTemplate) (*WorkTemplate, error) {
	id := tpl.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO work_templates
			(id, veterinarian_id, weekday, work_start, work_end, break_start, break_end, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (veterinarian_id, weekday) DO UPDATE
		SET work_start  = EXCLUDED.work_start,
		    work_end    = EXCLUDED.work_end,
		    break_start = EXCLUDED.break_start,
		    break_end   = EXCLUDED.break_end,
		    active      = EXCLUDED.active,
		    updated_at  = now()
		RETURNING id, veterinarian_id, weekday, work_start, work_end, break_start, break_end, active, created_at, updated_at
	`, id, tpl.VeterinarianID, int(tpl.Weekday), tpl.WorkStart, tpl.WorkEnd, tpl.BreakStart, tpl.BreakEnd, tpl.Active)

	return scanTemplate(row)
}

func (r *PgRepository) GetActiveTemplates(ctx context.Context, vetID uuid.UUID) ([]WorkTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, veterinarian_id, weekday, work_start, work_end, break_start, break_end, active, created_at, updated_at
		FROM work_templates
		WHERE veterinarian_id = $1 AND active
		ORDER BY weekday
	`, vetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WorkTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// InsertSlots persists one generation batch with COPY. No dedup against rows
// from earlier runs happens here.
func (r *PgRepository) InsertSlots(ctx context.Context, slots []Slot) error {
	now := time.Now()

	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"slots"},
		[]string{"id", "veterinarian_id", "start_at", "end_at", "state", "appointment_ref", "created_at", "updated_at"},
		pgx.CopyFromSlice(len(slots), func(i int) ([]any, error) {
			s := slots[i]
			return []any{s.ID, s.VeterinarianID, s.StartAt, s.EndAt, string(s.State), s.AppointmentRef, now, now}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy slots: %w", err)
	}

	return nil
}

func (r *PgRepository) ListSlotsByDay(ctx context.Context, vetID uuid.UUID, day time.Time, state *SlotState) ([]Slot, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := `
		SELECT id, veterinarian_id, start_at, end_at, state, appointment_ref, created_at, updated_at
		FROM slots
		WHERE veterinarian_id = $1 AND start_at >= $2 AND start_at < $3
		ORDER BY start_at`
	args := []any{vetID, dayStart, dayEnd}

	if state != nil {
		query = `
		SELECT id, veterinarian_id, start_at, end_at, state, appointment_ref, created_at, updated_at
		FROM slots
		WHERE veterinarian_id = $1 AND start_at >= $2 AND start_at < $3 AND state = $4
		ORDER BY start_at`
		args = append(args, string(*state))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// ReserveSlots runs the one conditional bulk update that decides the winner
// under contention. When fewer rows flip than were asked for, the whole
// transaction rolls back and the caller gets ErrSlotConflict; no partial
// reservation survives.
func (r *PgRepository) ReserveSlots(ctx context.Context, slotIDs []uuid.UUID, ref uuid.UUID) ([]Slot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reserve tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		UPDATE slots
		SET state = 'RESERVED',
		    appointment_ref = $1,
		    updated_at = now()
		WHERE id = ANY($2)
		  AND state = 'AVAILABLE'
		RETURNING id, veterinarian_id, start_at, end_at, state, appointment_ref, created_at, updated_at
	`, ref, slotIDs)
	if err != nil {
		return nil, fmt.Errorf("reserve update: %w", err)
	}

	var updated []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		updated = append(updated, *s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(updated) != len(slotIDs) {
		return nil, ErrSlotConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reserve tx: %w", err)
	}

	return updated, nil
}

func (r *PgRepository) ReleaseSlots(ctx context.Context, ref uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE slots
		SET state = 'AVAILABLE',
		    appointment_ref = NULL,
		    updated_at = now()
		WHERE appointment_ref = $1
		  AND state = 'RESERVED'
	`, ref)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (r *PgRepository) UpdateSlotState(ctx context.Context, id uuid.UUID, from, to SlotState) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE slots
		SET state = $2,
		    updated_at = now()
		WHERE id = $1
		  AND state = $3
		RETURNING id, veterinarian_id, start_at, end_at, state, appointment_ref, created_at, updated_at
	`, id, string(to), string(from))

	s, err := scanSlot(row)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrSlotNotFound) {
		return nil, err
	}

	// Distinguish a missing slot from one in the wrong state
	var exists bool
	if qerr := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM slots WHERE id = $1)`, id).Scan(&exists); qerr != nil {
		return nil, qerr
	}
	if exists {
		return nil, ErrSlotConflict
	}
	return nil, ErrSlotNotFound
}

// CreateOccupation checks for open-interval overlap and inserts in the same
// transaction. Adjacent ranges share an endpoint and pass the check.
func (r *PgRepository) CreateOccupation(ctx context.Context, occ Occupation) (*Occupation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin occupation tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var conflict bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM occupations
			WHERE veterinarian_id = $1
			  AND start_at < $3
			  AND end_at > $2
		)
	`, occ.VeterinarianID, occ.StartAt, occ.EndAt).Scan(&conflict)
	if err != nil {
		return nil, fmt.Errorf("occupation conflict check: %w", err)
	}
	if conflict {
		return nil, ErrOccupationConflict
	}

	var note *string
	if occ.Note != "" {
		note = &occ.Note
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO occupations (id, veterinarian_id, start_at, end_at, kind, external_ref, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id, veterinarian_id, start_at, end_at, kind, external_ref, note, created_at
	`, occ.ID, occ.VeterinarianID, occ.StartAt, occ.EndAt, string(occ.Kind), occ.ExternalRef, note)

	created, err := scanOccupation(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit occupation tx: %w", err)
	}

	return created, nil
}

func (r *PgRepository) ListOccupations(ctx context.Context, vetID uuid.UUID, from, to time.Time) ([]Occupation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, veterinarian_id, start_at, end_at, kind, external_ref, note, created_at
		FROM occupations
		WHERE veterinarian_id = $1
		  AND start_at < $3
		  AND end_at > $2
		ORDER BY start_at
	`, vetID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Occupation
	for rows.Next() {
		o, err := scanOccupation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) DeleteOccupationByRef(ctx context.Context, ref uuid.UUID, kind OccupationKind) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM occupations
		WHERE external_ref = $1 AND kind = $2
	`, ref, string(kind))
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
