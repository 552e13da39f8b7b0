package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertStoredObject records an uploaded file or photo for the owning
// identity and returns the new row id. The owner must already exist
// (ErrNotFound otherwise); no size or media-type validation happens at
// this layer.
func (s *Store) InsertStoredObject(ctx context.Context, obj StoredObject) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.identityExists(ctx, obj.IdentityID); err != nil {
		return 0, fmt.Errorf("insert object for identity %d: %w", obj.IdentityID, err)
	}

	uploadedAt := obj.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = s.now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO stored_objects (identity_id, name, media_type, size_bytes, remote_ref, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		obj.IdentityID, obj.Name, obj.MediaType, obj.SizeBytes, obj.RemoteRef,
		uploadedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("insert object: %w", err)
	}
	return res.LastInsertId()
}

// ListStoredObjects returns the identity's objects most-recent-first.
// A non-empty mediaTypePrefix (e.g. "image/") narrows the listing.
func (s *Store) ListStoredObjects(ctx context.Context, identityID int64, mediaTypePrefix string) ([]StoredObject, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `
		SELECT id, identity_id, name, media_type, size_bytes, remote_ref, uploaded_at
		FROM stored_objects WHERE identity_id = ?`
	args := []any{identityID}
	if mediaTypePrefix != "" {
		query += ` AND media_type LIKE ? || '%'`
		args = append(args, mediaTypePrefix)
	}
	query += ` ORDER BY uploaded_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	defer rows.Close()

	var objects []StoredObject
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, rows.Err()
}

// ListAllStoredObjects returns every stored object across identities,
// most-recent-first. Used by the reporting views.
func (s *Store) ListAllStoredObjects(ctx context.Context) ([]StoredObject, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identity_id, name, media_type, size_bytes, remote_ref, uploaded_at
		FROM stored_objects ORDER BY uploaded_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list all objects: %w", err)
	}
	defer rows.Close()

	var objects []StoredObject
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, rows.Err()
}

// GetStoredObjectByRemoteRef resolves a remote reference to its
// metadata row, or ErrNotFound.
func (s *Store) GetStoredObjectByRemoteRef(ctx context.Context, remoteRef string) (StoredObject, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, identity_id, name, media_type, size_bytes, remote_ref, uploaded_at
		FROM stored_objects WHERE remote_ref = ?`, remoteRef)
	return scanObject(row)
}

// DeleteStoredObjectByRemoteRef removes the matching rows. Deleting a
// reference that was never stored, or was already deleted, succeeds.
func (s *Store) DeleteStoredObjectByRemoteRef(ctx context.Context, remoteRef string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM stored_objects WHERE remote_ref = ?`, remoteRef); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func scanObject(row rowScanner) (StoredObject, error) {
	var (
		obj        StoredObject
		uploadedAt string
	)
	err := row.Scan(&obj.ID, &obj.IdentityID, &obj.Name, &obj.MediaType, &obj.SizeBytes, &obj.RemoteRef, &uploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredObject{}, ErrNotFound
	}
	if err != nil {
		return StoredObject{}, fmt.Errorf("scan object: %w", err)
	}
	obj.UploadedAt = parseTime(uploadedAt)
	return obj, nil
}
