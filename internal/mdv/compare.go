package mdv

import (
	"context"
	"fmt"
)

// CompareVersions computes a positional line diff from version id1 to id2.
func (s *SnapshotStore) CompareVersions(ctx context.Context, id1, id2 string) (*DiffReport, error) {
	if id1 == "" || id2 == "" {
		return nil, fmt.Errorf("%w: both version ids are required", ErrInvalidArgument)
	}

	v1, err := s.GetVersion(ctx, id1)
	if err != nil {
		return nil, err
	}
	v2, err := s.GetVersion(ctx, id2)
	if err != nil {
		return nil, err
	}

	lines, stats := positionalDiff(v1.Content, v2.Content)
	unified, err := unifiedDiff(v1.Content, v2.Content, v1.FilePath+"@"+v1.ID, v2.FilePath+"@"+v2.ID)
	if err != nil {
		return nil, fmt.Errorf("building unified diff: %w", err)
	}

	return &DiffReport{
		Version1:    VersionRef{ID: v1.ID, Timestamp: v1.Timestamp, Note: v1.Note},
		Version2:    VersionRef{ID: v2.ID, Timestamp: v2.Timestamp, Note: v2.Note},
		Diff:        lines,
		Stats:       stats,
		UnifiedDiff: unified,
	}, nil
}
