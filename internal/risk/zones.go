package risk

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/richxcame/cardshield/pkg/cache"
	"github.com/richxcame/cardshield/pkg/geo"
)

// RiskZone is a designated high-risk area, stored as the set of H3 cells
// it covers.
type RiskZone struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	RadiusKm  float64   `json:"radius_km"`
	CreatedAt time.Time `json:"created_at"`
}

// ZoneRepository resolves coordinates against high-risk zones via H3 cell
// membership.
type ZoneRepository struct {
	db    *pgxpool.Pool
	cache *cache.Manager
}

// NewZoneRepository creates the repository. cache may be nil.
func NewZoneRepository(db *pgxpool.Pool, cacheManager *cache.Manager) *ZoneRepository {
	return &ZoneRepository{db: db, cache: cacheManager}
}

// approximate resolution-8 cell edge, used to size a zone's cell disk
const riskCellEdgeKm = 0.46

// Contains reports whether the coordinate falls inside any zone, and the
// zone's label when it does.
func (r *ZoneRepository) Contains(ctx context.Context, lat, lng float64) (bool, string, error) {
	cell := geo.RiskZoneCell(lat, lng)

	lookup := func() (string, error) {
		var label string
		err := r.db.QueryRow(ctx,
			`SELECT z.label FROM risk_zones z JOIN risk_zone_cells c ON c.zone_id = z.id WHERE c.cell = $1 LIMIT 1`,
			cell,
		).Scan(&label)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", nil
			}
			return "", err
		}
		return label, nil
	}

	var label string
	if r.cache == nil {
		var err error
		if label, err = lookup(); err != nil {
			return false, "", err
		}
	} else {
		err := r.cache.GetOrSet(ctx, cache.Keys.RiskZone(cell), cache.TTL.Long(), &label, func() (interface{}, error) {
			l, err := lookup()
			if err != nil {
				return nil, err
			}
			return l, nil
		})
		if err != nil {
			return false, "", err
		}
	}

	return label != "", label, nil
}

// CreateZone stores a zone and the H3 cell disk covering its radius.
func (r *ZoneRepository) CreateZone(ctx context.Context, zone *RiskZone) error {
	k := int(zone.RadiusKm/riskCellEdgeKm) + 1
	if k > 30 {
		k = 30
	}
	cells := geo.NearbyRiskCells(zone.Latitude, zone.Longitude, k)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO risk_zones (id, label, latitude, longitude, radius_km, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		zone.ID, zone.Label, zone.Latitude, zone.Longitude, zone.RadiusKm, zone.CreatedAt,
	); err != nil {
		return err
	}

	for _, cell := range cells {
		if _, err := tx.Exec(ctx,
			`INSERT INTO risk_zone_cells (zone_id, cell) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			zone.ID, cell,
		); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if r.cache != nil {
		_ = r.cache.Invalidate(ctx, "risk:zone:*")
	}
	return nil
}

// DeleteZone removes a zone and its cells.
func (r *ZoneRepository) DeleteZone(ctx context.Context, zoneID uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM risk_zones WHERE id = $1`, zoneID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	if r.cache != nil {
		_ = r.cache.Invalidate(ctx, "risk:zone:*")
	}
	return nil
}

// ListZones returns all configured zones.
func (r *ZoneRepository) ListZones(ctx context.Context) ([]*RiskZone, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, label, latitude, longitude, radius_km, created_at FROM risk_zones ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []*RiskZone
	for rows.Next() {
		var zone RiskZone
		if err := rows.Scan(&zone.ID, &zone.Label, &zone.Latitude, &zone.Longitude, &zone.RadiusKm, &zone.CreatedAt); err != nil {
			return nil, err
		}
		zones = append(zones, &zone)
	}

	return zones, rows.Err()
}
