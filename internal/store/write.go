package store

import (
	"context"
	"fmt"
)

// WriteEvaluation inserts an evaluation record into the decision log.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - re-writing the same
// content-addressed decision is silently ignored. Other constraint
// violations (e.g., NOT NULL) still return errors.
func (s *Store) WriteEvaluation(ctx context.Context, ev Evaluation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations
		(id, token, subject, subject_hash, rulebook_hash, seq, fell_back, non_exhaustive)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ev.ID,
		ev.Token,
		ev.Subject,
		ev.SubjectHash,
		ev.RulebookHash,
		ev.Seq,
		boolToInt(ev.FellBack),
		boolToInt(ev.NonExhaustive),
	)
	if err != nil {
		return fmt.Errorf("write evaluation: %w", err)
	}

	return nil
}

// WriteFiring inserts a firing record into the decision log.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
//
// Note: The evaluation referenced by Token must exist (foreign key
// constraint), so write the evaluation first.
func (s *Store) WriteFiring(ctx context.Context, f Firing) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO firings
		(id, token, seq, clause_index, kind, action)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		f.ID,
		f.Token,
		f.Seq,
		f.ClauseIndex,
		f.Kind,
		f.Action,
	)
	if err != nil {
		return fmt.Errorf("write firing: %w", err)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
