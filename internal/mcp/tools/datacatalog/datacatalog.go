// Package datacatalog provides built-in MCP tools for browsing the Glue data
// catalog.
//
// Three tools are exported via [Tools]:
//   - "glue_list_databases" — lists catalog database names.
//   - "glue_list_tables"    — lists the tables of one database, optionally
//     with column and partition-key schemas.
//   - "glue_table_schema"   — returns the full schema of one table.
//
// All handlers are safe for concurrent use and degrade listings gracefully:
// results are capped and flagged as truncated rather than failing.
package datacatalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/glimt/datascout/internal/athena"
	"github.com/glimt/datascout/internal/mcp/tools"
	"github.com/glimt/datascout/pkg/types"
)

// Catalog is the backend slice the catalog tools need. *athena.Client
// implements it.
type Catalog interface {
	Databases(ctx context.Context, max int) ([]string, bool, error)
	Tables(ctx context.Context, database string, max int, includeSchema bool) ([]athena.Table, bool, error)
	TableSchema(ctx context.Context, database, table string) (*athena.Table, error)
}

// listDatabasesArgs is the JSON-decoded input for "glue_list_databases".
type listDatabasesArgs struct {
	// MaxDatabases caps the result size. Zero applies the default cap.
	MaxDatabases int `json:"max_databases"`
}

// listDatabasesResult is the JSON-encoded output of "glue_list_databases".
type listDatabasesResult struct {
	Databases []string `json:"databases"`
	Truncated bool     `json:"truncated"`
}

// listTablesArgs is the JSON-decoded input for "glue_list_tables".
type listTablesArgs struct {
	Database  string `json:"database"`
	MaxTables int    `json:"max_tables"`

	// IncludeSchema requests column and partition-key details per table.
	// Defaults to true when omitted.
	IncludeSchema *bool `json:"include_schema"`
}

// listTablesResult is the JSON-encoded output of "glue_list_tables".
type listTablesResult struct {
	Database  string         `json:"database"`
	Tables    []athena.Table `json:"tables"`
	Truncated bool           `json:"truncated"`
}

// tableSchemaArgs is the JSON-decoded input for "glue_table_schema".
type tableSchemaArgs struct {
	Database string `json:"database"`
	Table    string `json:"table"`
}

// tableSchemaResult is the JSON-encoded output of "glue_table_schema".
type tableSchemaResult struct {
	Database   string          `json:"database"`
	Table      string          `json:"table"`
	Columns    []athena.Column `json:"columns"`
	Partitions []athena.Column `json:"partitions"`
}

// Tools returns the catalog tool set backed by catalog.
func Tools(catalog Catalog) []tools.Tool {
	return []tools.Tool{
		{
			Definition: types.ToolDefinition{
				Name:        "glue_list_databases",
				Description: "Return Glue database names. Set max_databases to cap the result size.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"max_databases": map[string]any{
							"type":        "integer",
							"description": "Maximum number of database names to return.",
							"default":     athena.DefaultMaxCatalogEntries,
						},
					},
				},
			},
			Handler: listDatabasesHandler(catalog),
		},
		{
			Definition: types.ToolDefinition{
				Name:        "glue_list_tables",
				Description: "List tables in a Glue database, optionally with columns and partition keys.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"database": map[string]any{
							"type":        "string",
							"description": "Glue database name.",
						},
						"max_tables": map[string]any{
							"type":        "integer",
							"description": "Maximum number of tables to return.",
							"default":     athena.DefaultMaxCatalogEntries,
						},
						"include_schema": map[string]any{
							"type":        "boolean",
							"description": "Include column and partition-key schemas per table.",
							"default":     true,
						},
					},
					"required": []string{"database"},
				},
			},
			Handler: listTablesHandler(catalog),
		},
		{
			Definition: types.ToolDefinition{
				Name:        "glue_table_schema",
				Description: "Return the schema (columns and partition keys) of a specific Glue table.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"database": map[string]any{
							"type":        "string",
							"description": "Glue database name.",
						},
						"table": map[string]any{
							"type":        "string",
							"description": "Table name within the database.",
						},
					},
					"required": []string{"database", "table"},
				},
			},
			Handler: tableSchemaHandler(catalog),
		},
	}
}

func listDatabasesHandler(catalog Catalog) func(ctx context.Context, args string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var in listDatabasesArgs
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}

		names, truncated, err := catalog.Databases(ctx, in.MaxDatabases)
		if err != nil {
			return "", err
		}
		return encodeResult(listDatabasesResult{Databases: names, Truncated: truncated})
	}
}

func listTablesHandler(catalog Catalog) func(ctx context.Context, args string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var in listTablesArgs
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}

		includeSchema := true
		if in.IncludeSchema != nil {
			includeSchema = *in.IncludeSchema
		}

		entries, truncated, err := catalog.Tables(ctx, in.Database, in.MaxTables, includeSchema)
		if err != nil {
			return "", err
		}
		return encodeResult(listTablesResult{Database: in.Database, Tables: entries, Truncated: truncated})
	}
}

func tableSchemaHandler(catalog Catalog) func(ctx context.Context, args string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var in tableSchemaArgs
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}

		schema, err := catalog.TableSchema(ctx, in.Database, in.Table)
		if err != nil {
			return "", err
		}
		return encodeResult(tableSchemaResult{
			Database:   in.Database,
			Table:      in.Table,
			Columns:    schema.Columns,
			Partitions: schema.Partitions,
		})
	}
}

// decodeArgs unmarshals a JSON args string, tolerating an empty string.
func decodeArgs(args string, v any) error {
	if args == "" {
		args = "{}"
	}
	if err := json.Unmarshal([]byte(args), v); err != nil {
		return fmt.Errorf("datacatalog: invalid arguments: %w", err)
	}
	return nil
}

// encodeResult marshals a tool result to its JSON wire form.
func encodeResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("datacatalog: encode result: %w", err)
	}
	return string(data), nil
}
