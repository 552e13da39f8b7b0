package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// InsertPoll stores a new poll authored by the given identity and
// returns its id. Options are serialized as a JSON array.
func (s *Store) InsertPoll(ctx context.Context, poll Poll) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.identityExists(ctx, poll.IdentityID); err != nil {
		return 0, fmt.Errorf("insert poll for identity %d: %w", poll.IdentityID, err)
	}

	options, err := json.Marshal(poll.Options)
	if err != nil {
		return 0, fmt.Errorf("serialize poll options: %w", err)
	}
	kind := poll.Kind
	if kind == "" {
		kind = "regular"
	}
	createdAt := poll.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO polls (identity_id, question, options, kind, created_at, is_active)
		VALUES (?, ?, ?, ?, ?, 1)`,
		poll.IdentityID, poll.Question, string(options), kind,
		createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("insert poll: %w", err)
	}
	return res.LastInsertId()
}

// GetPoll returns the poll with the given id, or ErrNotFound.
func (s *Store) GetPoll(ctx context.Context, id int64) (Poll, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, identity_id, question, options, kind, created_at, is_active
		FROM polls WHERE id = ?`, id)
	return scanPoll(row)
}

// ListPolls returns all polls, most recent first.
func (s *Store) ListPolls(ctx context.Context) ([]Poll, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identity_id, question, options, kind, created_at, is_active
		FROM polls ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	defer rows.Close()

	var polls []Poll
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, poll)
	}
	return polls, rows.Err()
}

// InsertPollResponse records the identity's answer to a poll. Both the
// poll and the respondent must exist. One response per (poll, identity)
// is kept: answering again overwrites the previous choice.
func (s *Store) InsertPollResponse(ctx context.Context, pollID, identityID int64, option string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.GetPoll(ctx, pollID); err != nil {
		return fmt.Errorf("respond to poll %d: %w", pollID, err)
	}
	if err := s.identityExists(ctx, identityID); err != nil {
		return fmt.Errorf("respond as identity %d: %w", identityID, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO poll_responses (poll_id, identity_id, option, responded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (poll_id, identity_id) DO UPDATE SET
			option       = excluded.option,
			responded_at = excluded.responded_at`,
		pollID, identityID, option, s.nowString(),
	)
	if err != nil {
		return fmt.Errorf("insert poll response: %w", err)
	}
	return nil
}

// ListPollResponses returns the recorded answers for a poll.
func (s *Store) ListPollResponses(ctx context.Context, pollID int64) ([]PollResponse, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, poll_id, identity_id, option, responded_at
		FROM poll_responses WHERE poll_id = ? ORDER BY responded_at DESC, id DESC`, pollID)
	if err != nil {
		return nil, fmt.Errorf("list poll responses: %w", err)
	}
	defer rows.Close()

	var responses []PollResponse
	for rows.Next() {
		var (
			resp        PollResponse
			respondedAt string
		)
		if err := rows.Scan(&resp.ID, &resp.PollID, &resp.IdentityID, &resp.Option, &respondedAt); err != nil {
			return nil, fmt.Errorf("scan poll response: %w", err)
		}
		resp.RespondedAt = parseTime(respondedAt)
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

func scanPoll(row rowScanner) (Poll, error) {
	var (
		poll      Poll
		options   string
		createdAt string
	)
	err := row.Scan(&poll.ID, &poll.IdentityID, &poll.Question, &options, &poll.Kind, &createdAt, &poll.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return Poll{}, ErrNotFound
	}
	if err != nil {
		return Poll{}, fmt.Errorf("scan poll: %w", err)
	}
	if err := json.Unmarshal([]byte(options), &poll.Options); err != nil {
		return Poll{}, fmt.Errorf("parse poll options: %w", err)
	}
	poll.CreatedAt = parseTime(createdAt)
	return poll, nil
}
