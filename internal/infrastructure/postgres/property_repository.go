package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"finlink/internal/domain/liability"
)

// PropertyRepository implements liability.PropertyRepository on Postgres.
type PropertyRepository struct {
	db *DB
}

func NewPropertyRepository(db *DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

const propertyColumns = `
	id, user_id, street, city, region, postal_code, country, liability_id,
	created_at, updated_at`

func (r *PropertyRepository) Upsert(ctx context.Context, params liability.PropertyUpsertParams) (*liability.Property, error) {
	query := `
		INSERT INTO properties (
			user_id, street, city, region, postal_code, country, liability_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, street, city, postal_code) DO UPDATE SET
			region = EXCLUDED.region,
			country = EXCLUDED.country,
			liability_id = EXCLUDED.liability_id,
			updated_at = NOW()
		RETURNING` + propertyColumns

	row := r.db.QueryRowContext(ctx, query,
		params.UserID,
		params.Street,
		params.City,
		params.Region,
		params.PostalCode,
		params.Country,
		nullableInt64(params.LiabilityID),
	)
	return scanProperty(row)
}

func (r *PropertyRepository) GetByLiabilityID(ctx context.Context, liabilityID int64) (*liability.Property, error) {
	query := `SELECT` + propertyColumns + ` FROM properties WHERE liability_id = $1`
	prop, err := scanProperty(r.db.QueryRowContext(ctx, query, liabilityID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property by liability: %w", err)
	}
	return prop, nil
}

func (r *PropertyRepository) Update(ctx context.Context, id int64, params liability.PropertyUpsertParams) (*liability.Property, error) {
	query := `
		UPDATE properties SET
			street = $2,
			city = $3,
			region = $4,
			postal_code = $5,
			country = $6,
			liability_id = $7,
			updated_at = NOW()
		WHERE id = $1
		RETURNING` + propertyColumns

	row := r.db.QueryRowContext(ctx, query,
		id,
		params.Street,
		params.City,
		params.Region,
		params.PostalCode,
		params.Country,
		nullableInt64(params.LiabilityID),
	)
	prop, err := scanProperty(row)
	if err != nil {
		return nil, fmt.Errorf("failed to update property: %w", err)
	}
	return prop, nil
}

func (r *PropertyRepository) ListByUserID(ctx context.Context, userID int64) ([]*liability.Property, error) {
	query := `SELECT` + propertyColumns + ` FROM properties WHERE user_id = $1 ORDER BY street`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var properties []*liability.Property
	for rows.Next() {
		prop, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, prop)
	}
	return properties, rows.Err()
}

func scanProperty(row rowScanner) (*liability.Property, error) {
	var prop liability.Property
	var liabilityID sql.NullInt64

	err := row.Scan(
		&prop.ID,
		&prop.UserID,
		&prop.Street,
		&prop.City,
		&prop.Region,
		&prop.PostalCode,
		&prop.Country,
		&liabilityID,
		&prop.CreatedAt,
		&prop.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if liabilityID.Valid {
		prop.LiabilityID = &liabilityID.Int64
	}
	return &prop, nil
}
