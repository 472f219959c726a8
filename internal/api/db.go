package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-rezone/internal/db"
)

// DBHandler handles attribute store endpoints.
type DBHandler struct {
	store *db.Store
}

// NewDBHandler creates a new database handler. A nil store answers 503.
func NewDBHandler(store *db.Store) *DBHandler {
	return &DBHandler{store: store}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("db"))
	huma.Post(api, "/api/v1/query", h.Query, huma.OperationTags("db"))
	huma.Get(api, "/api/v1/summary/categories", h.SummarizeCategories, huma.OperationTags("db"))
}

// TablesOutput is the response for listing tables.
type TablesOutput struct {
	Body struct {
		Tables []string `json:"tables" doc:"List of table names"`
	}
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.store == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	tables, err := h.store.Tables(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	out := &TablesOutput{}
	out.Body.Tables = tables
	return out, nil
}

// QueryInput is the input for SQL queries.
type QueryInput struct {
	Body struct {
		Query string `json:"query" required:"true" minLength:"1" doc:"SQL query to execute" example:"SELECT use_category, count(*) FROM parcels GROUP BY 1"`
	}
}

// QueryOutput is the response for SQL queries.
type QueryOutput struct {
	Body struct {
		db.Result
		Count int `json:"count" doc:"Number of rows returned"`
	}
}

// Query executes a SQL query against the attribute store.
func (h *DBHandler) Query(ctx context.Context, input *QueryInput) (*QueryOutput, error) {
	if h.store == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	res, err := h.store.Query(ctx, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	out := &QueryOutput{}
	out.Body.Result = res
	out.Body.Count = len(res.Rows)
	return out, nil
}

// CategoriesOutput is the per-category parcel summary.
type CategoriesOutput struct {
	Body struct {
		Categories []db.CategorySummary `json:"categories" doc:"Parcels and FAR change per use category"`
	}
}

func (h *DBHandler) SummarizeCategories(ctx context.Context, input *struct{}) (*CategoriesOutput, error) {
	if h.store == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	cats, err := h.store.Categories(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to summarize categories", err)
	}
	out := &CategoriesOutput{}
	out.Body.Categories = cats
	return out, nil
}
