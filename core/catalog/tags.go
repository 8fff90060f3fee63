package catalog

import "fmt"

// =============================================================================
// Tags
// =============================================================================

// ListTags returns all tags, sorted by name.
func (s *Store) ListTags() ([]Tag, error) {
	rows, err := s.db.Query(`SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CreateTag creates a tag if it does not already exist and returns it.
func (s *Store) CreateTag(name string) (Tag, error) {
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO tags (name) VALUES (?)`, name); err != nil {
		return Tag{}, fmt.Errorf("create tag: %w", err)
	}

	var t Tag
	err := s.db.QueryRow(`SELECT id, name FROM tags WHERE name = ?`, name).Scan(&t.ID, &t.Name)
	if err != nil {
		return Tag{}, fmt.Errorf("create tag read back: %w", err)
	}
	return t, nil
}

// RemoveTag deletes a tag; associations cascade.
func (s *Store) RemoveTag(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM tags WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove tag: %w", err)
	}
	return nil
}

// TagResource associates a tag with a resource. Source records whether the
// association was made by the user or derived automatically.
func (s *Store) TagResource(resourceID string, tagID int64, source string) error {
	if source == "" {
		source = TagSourceManual
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO resource_tags (resource_id, tag_id, source) VALUES (?, ?, ?)`,
		resourceID, tagID, source,
	)
	if err != nil {
		return fmt.Errorf("tag resource: %w", err)
	}
	s.invalidateResourceID(resourceID)
	return nil
}

// UntagResource removes a tag association from a resource.
func (s *Store) UntagResource(resourceID string, tagID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM resource_tags WHERE resource_id = ? AND tag_id = ?`,
		resourceID, tagID,
	)
	if err != nil {
		return fmt.Errorf("untag resource: %w", err)
	}
	s.invalidateResourceID(resourceID)
	return nil
}

// attachTags loads a resource's tag associations.
func (s *Store) attachTags(r *Resource) error {
	rows, err := s.db.Query(`
		SELECT t.id, t.name, rt.source
		FROM tags t JOIN resource_tags rt ON t.id = rt.tag_id
		WHERE rt.resource_id = ?`, r.ID)
	if err != nil {
		return fmt.Errorf("attach tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Source); err != nil {
			return err
		}
		r.Tags = append(r.Tags, t)
	}
	return rows.Err()
}

// invalidateResourceID drops the cached copy of a resource after a tag
// change, looking the path up by id.
func (s *Store) invalidateResourceID(id string) {
	var path string
	if err := s.db.QueryRow(`SELECT file_path FROM resources WHERE id = ?`, id).Scan(&path); err == nil {
		s.invalidatePath(path)
	}
}
