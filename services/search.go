package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/centrohq/centro/authz"
)

// SearchService runs the cross-entity quick search: a capped, fixed-order
// scan over tickets, assets and workspaces within one company.
type SearchService struct {
	PG    *sql.DB
	Authz authz.Authorizer
}

func NewSearchService(pg *sql.DB, authorizer authz.Authorizer) *SearchService {
	return &SearchService{PG: pg, Authz: authorizer}
}

// SearchResult is one quick-search hit.
type SearchResult struct {
	Kind        string `json:"kind"` // ticket, asset, workspace
	ID          string `json:"id"`
	Title       string `json:"title"`
	WorkspaceID string `json:"workspace_id,omitempty"`
}

const (
	searchTicketCap    = 5
	searchAssetCap     = 5
	searchWorkspaceCap = 3
)

// Search matches the query case-insensitively against ticket titles, asset
// file names and workspace names. Results come back tickets first, then
// assets, then workspaces, capped per kind. Active company members only;
// restricted assets only surface for company admins.
func (s *SearchService) Search(ctx context.Context, userID, companyID, query string) ([]SearchResult, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, authz.ErrInvalidInput
	}
	pattern := "%" + escapeLike(query) + "%"

	results := make([]SearchResult, 0, searchTicketCap+searchAssetCap+searchWorkspaceCap)

	appendHits := func(kind, q string, limit int) error {
		rows, err := s.PG.QueryContext(ctx, q, companyID, pattern, limit)
		if err != nil {
			return fmt.Errorf("failed to search %ss: %w", kind, err)
		}
		defer rows.Close()
		for rows.Next() {
			r := SearchResult{Kind: kind}
			var workspaceID sql.NullString
			if err := rows.Scan(&r.ID, &r.Title, &workspaceID); err != nil {
				return fmt.Errorf("failed to scan %s hit: %w", kind, err)
			}
			r.WorkspaceID = workspaceID.String
			results = append(results, r)
		}
		return rows.Err()
	}

	if err := appendHits("ticket", `
		SELECT id, title, workspace_id FROM tickets
		WHERE company_id = $1 AND title ILIKE $2
		ORDER BY created_at DESC LIMIT $3
	`, searchTicketCap); err != nil {
		return nil, err
	}

	assetQuery := `
		SELECT id, file_name, workspace_id FROM assets
		WHERE company_id = $1 AND file_name ILIKE $2 AND is_restricted = false
		ORDER BY created_at DESC LIMIT $3
	`
	if s.Authz.GetCompanyRole(ctx, userID, companyID) == authz.RoleAdmin {
		assetQuery = `
			SELECT id, file_name, workspace_id FROM assets
			WHERE company_id = $1 AND file_name ILIKE $2
			ORDER BY created_at DESC LIMIT $3
		`
	}
	if err := appendHits("asset", assetQuery, searchAssetCap); err != nil {
		return nil, err
	}

	if err := appendHits("workspace", `
		SELECT id, name, NULL FROM workspaces
		WHERE company_id = $1 AND name ILIKE $2
		ORDER BY created_at DESC LIMIT $3
	`, searchWorkspaceCap); err != nil {
		return nil, err
	}

	return results, nil
}

// escapeLike neutralizes LIKE metacharacters in user queries.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
