package store

import (
	"context"

	"github.com/MikeSquared-Agency/civixity/internal/model"
)

// ListIssues returns posts matching q, newest first.
func (s *Store) ListIssues(ctx context.Context, q IssueQuery) ([]model.IssueReport, error) {
	var location string
	if q.Location != "" {
		location = likeContains(q.Location)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id::text, COALESCE(title, ''), COALESCE(description, ''), COALESCE(category, ''),
		       COALESCE(severity, 0)::int, COALESCE(location, ''), created_at,
		       COALESCE(upvotes, 0)::int, COALESCE(downvotes, 0)::int, image_url
		FROM posts
		WHERE ($1::text = '' OR category = $1)
		  AND ($2::text = '' OR location ILIKE $2)
		ORDER BY created_at DESC
		LIMIT $3`,
		q.Category, location, q.limit(),
	)
	if err != nil {
		return nil, unavailable("query posts", err)
	}
	defer rows.Close()

	var out []model.IssueReport
	for rows.Next() {
		var r model.IssueReport
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.Category, &r.Severity,
			&r.Location, &r.CreatedAt, &r.Upvotes, &r.Downvotes, &r.ImageURL); err != nil {
			return nil, unavailable("scan post", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate posts", err)
	}
	return out, nil
}
