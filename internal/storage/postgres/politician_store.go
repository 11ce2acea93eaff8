package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// PoliticianStore resolves disclosed names to canonical identities.
// Disclosures spell the same person several ways, so lookup matches both the
// canonical name and the alias table, case-insensitively.
type PoliticianStore struct {
	db *sqlx.DB
}

var _ interfaces.PoliticianStorage = (*PoliticianStore)(nil)

func NewPoliticianStore(db *sqlx.DB) *PoliticianStore {
	return &PoliticianStore{db: db}
}

func (s *PoliticianStore) FindByName(ctx context.Context, name string) (*models.Politician, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	var p models.Politician
	err := s.db.GetContext(ctx, &p, `
		SELECT p.id, p.canonical_name, p.party, p.state, p.chamber, p.is_leadership
		FROM politicians p
		WHERE LOWER(p.canonical_name) = LOWER($1)
		   OR p.id IN (
			SELECT politician_id FROM politician_aliases
			WHERE LOWER(alias) = LOWER($1)
		   )
		LIMIT 1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve politician %q: %w", name, err)
	}
	return &p, nil
}

// Committees returns the politician's committees with their target sectors.
func (s *PoliticianStore) Committees(ctx context.Context, politicianID int64) ([]models.Committee, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	type committeeRow struct {
		ID      int64          `db:"id"`
		Name    string         `db:"name"`
		Sectors pq.StringArray `db:"target_sectors"`
	}

	var rows []committeeRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT c.id, c.name, c.target_sectors
		FROM committees c
		JOIN committee_assignments ca ON ca.committee_id = c.id
		WHERE ca.politician_id = $1
		ORDER BY c.name`, politicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list committees: %w", err)
	}

	committees := make([]models.Committee, 0, len(rows))
	for _, r := range rows {
		committees = append(committees, models.Committee{
			ID:            r.ID,
			Name:          r.Name,
			TargetSectors: []string(r.Sectors),
		})
	}
	return committees, nil
}
