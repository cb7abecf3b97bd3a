package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/ports"
)

// Sealed column names, used as AAD.
const (
	colTime    = "logs.time"
	colDate    = "logs.date"
	colSevName = "logs.sev_name"
	colClass   = "logs.class"
	colMessage = "logs.message"
)

// sealedRow is a row as read from disk, before unsealing.
type sealedRow struct {
	id       int64
	time     []byte
	date     []byte
	severity int
	sevName  []byte
	class    []byte
	message  []byte
	sent     bool
}

// Insert rotates the store if it is full, then writes entry as unsent.
func (s *Store) Insert(ctx context.Context, entry domain.Entry) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.insertLocked(ctx, entry)
	if errors.Is(err, domain.ErrClosed) {
		return domain.Entry{}, err
	}
	if err != nil {
		s.logger.Error("Failed to insert entry",
			ports.String("severity", entry.SeverityName), ports.Err(err))
		return domain.Entry{}, err
	}
	return stored, nil
}

func (s *Store) insertLocked(ctx context.Context, entry domain.Entry) (domain.Entry, error) {
	if _, err := s.rotateLocked(ctx); err != nil {
		return domain.Entry{}, err
	}
	if err := s.openLocked(ctx); err != nil {
		return domain.Entry{}, err
	}

	if entry.SeverityName == "" {
		entry.SeverityName = entry.Severity.String()
	}
	cols := [...]struct {
		name, value string
	}{
		{colTime, entry.Time},
		{colDate, entry.Date},
		{colSevName, entry.SeverityName},
		{colClass, entry.Origin},
		{colMessage, entry.Message},
	}
	var sealed [len(cols)][]byte
	for i, c := range cols {
		blob, err := s.seal.seal(c.name, c.value)
		if err != nil {
			return domain.Entry{}, err
		}
		sealed[i] = blob
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (time, date, severity, sev_name, class, message, sent) VALUES (?, ?, ?, ?, ?, ?, 0)`,
		sealed[0], sealed[1], int(entry.Severity), sealed[2], sealed[3], sealed[4],
	)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	entry.ID = id
	entry.Sent = false
	return entry, nil
}

// Each calls fn for every entry with Severity >= minSeverity and the given
// sent flag, in insertion order, until fn returns false. Rows that cannot be
// unsealed are skipped.
//
// The matching rows are read under the store lock and unsealed after it is
// released, so fn may call back into the store.
func (s *Store) Each(ctx context.Context, minSeverity domain.Severity, sent bool, fn func(domain.Entry) bool) error {
	rows, err := s.selectSealed(ctx, minSeverity, sent)
	if errors.Is(err, domain.ErrClosed) {
		return err
	}
	if err != nil {
		s.logger.Error("Failed to query entries", ports.Err(err))
		return err
	}

	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := s.unseal(r)
		if err != nil {
			s.logger.Warn("Skipping unreadable entry", ports.Int64("id", r.id), ports.Err(err))
			continue
		}
		if !fn(entry) {
			return nil
		}
	}
	return nil
}

// Query returns every entry Each would visit.
func (s *Store) Query(ctx context.Context, minSeverity domain.Severity, sent bool) ([]domain.Entry, error) {
	var out []domain.Entry
	err := s.Each(ctx, minSeverity, sent, func(e domain.Entry) bool {
		out = append(out, e)
		return true
	})
	return out, err
}

// MarkSent flags every unsent entry with Severity >= minSeverity as sent.
func (s *Store) MarkSent(ctx context.Context, minSeverity domain.Severity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(ctx); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE logs SET sent = 1 WHERE severity >= ? AND sent = 0`, int(minSeverity))
	if err != nil {
		s.logger.Error("Failed to mark entries sent", ports.Err(err))
		return 0, fmt.Errorf("mark sent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark sent: %w", err)
	}
	return n, nil
}

func (s *Store) selectSealed(ctx context.Context, minSeverity domain.Severity, sent bool) ([]sealedRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(ctx); err != nil {
		return nil, err
	}

	sentFlag := 0
	if sent {
		sentFlag = 1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, time, date, severity, sev_name, class, message, sent
		 FROM logs WHERE severity >= ? AND sent = ? ORDER BY id`,
		int(minSeverity), sentFlag,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []sealedRow
	for rows.Next() {
		var r sealedRow
		if err := rows.Scan(&r.id, &r.time, &r.date, &r.severity, &r.sevName, &r.class, &r.message, &r.sent); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return out, nil
}

func (s *Store) unseal(r sealedRow) (domain.Entry, error) {
	e := domain.Entry{
		ID:       r.id,
		Severity: domain.Severity(r.severity),
		Sent:     r.sent,
	}
	fields := [...]struct {
		name string
		blob []byte
		dst  *string
	}{
		{colTime, r.time, &e.Time},
		{colDate, r.date, &e.Date},
		{colSevName, r.sevName, &e.SeverityName},
		{colClass, r.class, &e.Origin},
		{colMessage, r.message, &e.Message},
	}
	for _, f := range fields {
		v, err := s.seal.open(f.name, f.blob)
		if err != nil {
			return domain.Entry{}, err
		}
		*f.dst = v
	}
	return e, nil
}
