package store

import (
	"context"
	"fmt"
)

// ReadEvaluations returns all evaluations in the decision log.
// Results are ordered deterministically: ORDER BY seq ASC, id COLLATE
// BINARY ASC, so replay visits decisions in the order they were made.
//
// Returns an empty slice (not nil) for an empty log.
func (s *Store) ReadEvaluations(ctx context.Context) ([]Evaluation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, token, subject, subject_hash, rulebook_hash, seq, fell_back, non_exhaustive
		FROM evaluations
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	evaluations := []Evaluation{}
	for rows.Next() {
		var ev Evaluation
		var fellBack, nonExhaustive int
		if err := rows.Scan(&ev.ID, &ev.Token, &ev.Subject, &ev.SubjectHash,
			&ev.RulebookHash, &ev.Seq, &fellBack, &nonExhaustive); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		ev.FellBack = fellBack != 0
		ev.NonExhaustive = nonExhaustive != 0
		evaluations = append(evaluations, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}

	return evaluations, nil
}

// ReadEvaluation returns the evaluation for a token.
// Returns (nil, nil) if no evaluation exists for the token.
func (s *Store) ReadEvaluation(ctx context.Context, token string) (*Evaluation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, token, subject, subject_hash, rulebook_hash, seq, fell_back, non_exhaustive
		FROM evaluations
		WHERE token = ?
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query evaluation: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query evaluation: %w", err)
		}
		return nil, nil
	}

	var ev Evaluation
	var fellBack, nonExhaustive int
	if err := rows.Scan(&ev.ID, &ev.Token, &ev.Subject, &ev.SubjectHash,
		&ev.RulebookHash, &ev.Seq, &fellBack, &nonExhaustive); err != nil {
		return nil, fmt.Errorf("scan evaluation: %w", err)
	}
	ev.FellBack = fellBack != 0
	ev.NonExhaustive = nonExhaustive != 0
	return &ev, nil
}

// ReadFirings returns all firings for an evaluation token in seq order.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadFirings(ctx context.Context, token string) ([]Firing, error) {
	return s.readFirings(ctx, `
		SELECT id, token, seq, clause_index, kind, action
		FROM firings
		WHERE token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, token)
}

// ReadFiringsByAction returns all firings for an action across
// evaluations, in seq order. Used by trace filtering.
func (s *Store) ReadFiringsByAction(ctx context.Context, action string) ([]Firing, error) {
	return s.readFirings(ctx, `
		SELECT id, token, seq, clause_index, kind, action
		FROM firings
		WHERE action = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, action)
}

// ReadAllFirings returns every firing in the log in seq order.
func (s *Store) ReadAllFirings(ctx context.Context) ([]Firing, error) {
	return s.readFirings(ctx, `
		SELECT id, token, seq, clause_index, kind, action
		FROM firings
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

func (s *Store) readFirings(ctx context.Context, query string, args ...any) ([]Firing, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query firings: %w", err)
	}
	defer rows.Close()

	firings := []Firing{}
	for rows.Next() {
		var f Firing
		if err := rows.Scan(&f.ID, &f.Token, &f.Seq, &f.ClauseIndex, &f.Kind, &f.Action); err != nil {
			return nil, fmt.Errorf("scan firing: %w", err)
		}
		firings = append(firings, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firings: %w", err)
	}

	return firings, nil
}

// CountEvaluations returns the number of evaluations in the log.
func (s *Store) CountEvaluations(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM evaluations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count evaluations: %w", err)
	}
	return n, nil
}
