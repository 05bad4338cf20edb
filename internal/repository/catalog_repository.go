package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/mas-api/internal/models"
)

// CatalogRepository reads project, building, service, item and make records.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := r.db.GetContext(ctx, &project, `SELECT id, name, project_number, created_at FROM projects WHERE id = $1`, id); err != nil {
		return nil, normalizeLookupErr(err)
	}
	return &project, nil
}

func (r *CatalogRepository) GetBuilding(ctx context.Context, id string) (*models.Building, error) {
	var building models.Building
	if err := r.db.GetContext(ctx, &building, `SELECT id, project_id, name FROM buildings WHERE id = $1`, id); err != nil {
		return nil, normalizeLookupErr(err)
	}
	return &building, nil
}

func (r *CatalogRepository) GetService(ctx context.Context, id string) (*models.Service, error) {
	var service models.Service
	if err := r.db.GetContext(ctx, &service, `SELECT id, name, other_name FROM services WHERE id = $1`, id); err != nil {
		return nil, normalizeLookupErr(err)
	}
	return &service, nil
}

func (r *CatalogRepository) GetItem(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	if err := r.db.GetContext(ctx, &item, `SELECT id, service_id, name FROM items WHERE id = $1`, id); err != nil {
		return nil, normalizeLookupErr(err)
	}
	return &item, nil
}

func (r *CatalogRepository) GetMake(ctx context.Context, id string) (*models.ItemMake, error) {
	var itemMake models.ItemMake
	if err := r.db.GetContext(ctx, &itemMake, `SELECT id, item_id, name FROM item_makes WHERE id = $1`, id); err != nil {
		return nil, normalizeLookupErr(err)
	}
	return &itemMake, nil
}

// ListBuildings returns a project's buildings by name.
func (r *CatalogRepository) ListBuildings(ctx context.Context, projectID string) ([]models.Building, error) {
	var buildings []models.Building
	if err := r.db.SelectContext(ctx, &buildings, `SELECT id, project_id, name FROM buildings WHERE project_id = $1 ORDER BY name`, projectID); err != nil {
		return nil, fmt.Errorf("list buildings: %w", normalizeLookupErr(err))
	}
	return buildings, nil
}

// ListServices returns the given services, or every service when ids is empty.
func (r *CatalogRepository) ListServices(ctx context.Context, ids []string) ([]models.Service, error) {
	query := `SELECT id, name, other_name FROM services`
	args := []interface{}{}
	if len(ids) > 0 {
		query += ` WHERE id = ANY($1)`
		args = append(args, pq.Array(ids))
	}
	query += ` ORDER BY name, other_name`
	var services []models.Service
	if err := r.db.SelectContext(ctx, &services, query, args...); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// ListItems returns a service's items by name.
func (r *CatalogRepository) ListItems(ctx context.Context, serviceID string) ([]models.Item, error) {
	var items []models.Item
	if err := r.db.SelectContext(ctx, &items, `SELECT id, service_id, name FROM items WHERE service_id = $1 ORDER BY name`, serviceID); err != nil {
		return nil, fmt.Errorf("list items: %w", normalizeLookupErr(err))
	}
	return items, nil
}

// ListMakes returns an item's makes by name.
func (r *CatalogRepository) ListMakes(ctx context.Context, itemID string) ([]models.ItemMake, error) {
	var makes []models.ItemMake
	if err := r.db.SelectContext(ctx, &makes, `SELECT id, item_id, name FROM item_makes WHERE item_id = $1 ORDER BY name`, itemID); err != nil {
		return nil, fmt.Errorf("list makes: %w", normalizeLookupErr(err))
	}
	return makes, nil
}
