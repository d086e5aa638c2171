package external

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore reads external reference data from PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed reference data store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Sources exposes the store as the five population sources
func (s *PostgresStore) Sources() Sources {
	return Sources{
		LearningDeliveries: RetrieverFunc[LARSLearningDelivery](s.LearningDeliveries),
		Frameworks:         RetrieverFunc[Framework](s.Frameworks),
		ULNs:               RetrieverFunc[int64](s.ULNs),
		Postcodes:          RetrieverFunc[Postcode](s.Postcodes),
		Organisations:      RetrieverFunc[Organisation](s.Organisations),
	}
}

// LearningDeliveries returns every LARS learning delivery
func (s *PostgresStore) LearningDeliveries(ctx context.Context) ([]LARSLearningDelivery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT learn_aim_ref, learn_aim_ref_type, notional_nvq_level,
		       framework_common_component, effective_from, effective_to
		FROM lars_learning_delivery
		ORDER BY learn_aim_ref
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list learning deliveries: %w", err)
	}
	defer rows.Close()

	var out []LARSLearningDelivery
	for rows.Next() {
		var (
			ld        LARSLearningDelivery
			component sql.NullInt64
			to        sql.NullTime
		)
		if err := rows.Scan(&ld.LearnAimRef, &ld.LearnAimRefType, &ld.NotionalNVQLevel,
			&component, &ld.EffectiveFrom, &to); err != nil {
			return nil, fmt.Errorf("failed to scan learning delivery: %w", err)
		}
		ld.FrameworkCommonComponent = nullInt(component)
		ld.EffectiveTo = nullTime(to)
		out = append(out, ld)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating learning deliveries: %w", err)
	}
	return out, nil
}

// Frameworks returns every framework with its aims
func (s *PostgresStore) Frameworks(ctx context.Context) ([]Framework, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fwork_code, prog_type, pway_code, effective_from, effective_to
		FROM lars_framework
		ORDER BY fwork_code, prog_type, pway_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list frameworks: %w", err)
	}
	defer rows.Close()

	type frameworkKey struct{ fwork, prog, pway int }
	var out []Framework
	index := make(map[frameworkKey]int)
	for rows.Next() {
		var (
			fw Framework
			to sql.NullTime
		)
		if err := rows.Scan(&fw.FworkCode, &fw.ProgType, &fw.PwayCode, &fw.EffectiveFrom, &to); err != nil {
			return nil, fmt.Errorf("failed to scan framework: %w", err)
		}
		fw.EffectiveTo = nullTime(to)
		index[frameworkKey{fw.FworkCode, fw.ProgType, fw.PwayCode}] = len(out)
		out = append(out, fw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating frameworks: %w", err)
	}

	aimRows, err := s.db.QueryContext(ctx, `
		SELECT fwork_code, prog_type, pway_code, learn_aim_ref, framework_component_type
		FROM lars_framework_aim
		ORDER BY fwork_code, prog_type, pway_code, learn_aim_ref
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list framework aims: %w", err)
	}
	defer aimRows.Close()

	for aimRows.Next() {
		var (
			key       frameworkKey
			aim       FrameworkAim
			component sql.NullInt64
		)
		if err := aimRows.Scan(&key.fwork, &key.prog, &key.pway, &aim.LearnAimRef, &component); err != nil {
			return nil, fmt.Errorf("failed to scan framework aim: %w", err)
		}
		aim.FrameworkComponentType = nullInt(component)
		if i, ok := index[key]; ok {
			out[i].Aims = append(out[i].Aims, aim)
		}
	}
	if err := aimRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating framework aims: %w", err)
	}
	return out, nil
}

// ULNs returns every known unique learner number
func (s *PostgresStore) ULNs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT uln FROM uln ORDER BY uln`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ULNs: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var uln int64
		if err := rows.Scan(&uln); err != nil {
			return nil, fmt.Errorf("failed to scan ULN: %w", err)
		}
		out = append(out, uln)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ULNs: %w", err)
	}
	return out, nil
}

// Postcodes returns every known postcode
func (s *PostgresStore) Postcodes(ctx context.Context) ([]Postcode, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT postcode FROM postcode ORDER BY postcode`)
	if err != nil {
		return nil, fmt.Errorf("failed to list postcodes: %w", err)
	}
	defer rows.Close()

	var out []Postcode
	for rows.Next() {
		var pc Postcode
		if err := rows.Scan(&pc.Postcode); err != nil {
			return nil, fmt.Errorf("failed to scan postcode: %w", err)
		}
		out = append(out, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating postcodes: %w", err)
	}
	return out, nil
}

// Organisations returns every registered organisation
func (s *PostgresStore) Organisations(ctx context.Context) ([]Organisation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ukprn, legal_org_type, partner_ukprn
		FROM organisation
		ORDER BY ukprn
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organisations: %w", err)
	}
	defer rows.Close()

	var out []Organisation
	for rows.Next() {
		var org Organisation
		if err := rows.Scan(&org.UKPRN, &org.LegalOrgType, &org.PartnerUKPRN); err != nil {
			return nil, fmt.Errorf("failed to scan organisation: %w", err)
		}
		out = append(out, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organisations: %w", err)
	}
	return out, nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
