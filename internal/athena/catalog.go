package athena

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
)

// DefaultMaxCatalogEntries bounds database and table listings.
const DefaultMaxCatalogEntries = 200

// Column is one column or partition key of a catalog table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table describes one catalog table. Columns and Partitions are nil when the
// listing was requested without schema details.
type Table struct {
	Name       string   `json:"table"`
	Columns    []Column `json:"columns,omitempty"`
	Partitions []Column `json:"partitions,omitempty"`
}

// Databases lists catalog database names, up to max entries. The second
// return value reports whether the listing was cut short.
func (c *Client) Databases(ctx context.Context, max int) ([]string, bool, error) {
	if max <= 0 {
		max = DefaultMaxCatalogEntries
	}

	names := []string{}
	pager := glue.NewGetDatabasesPaginator(c.catalog, &glue.GetDatabasesInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("athena: list databases: %w", err)
		}
		for _, db := range page.DatabaseList {
			names = append(names, aws.ToString(db.Name))
			if len(names) >= max {
				return names, true, nil
			}
		}
	}
	return names, false, nil
}

// Tables lists the tables of one database, up to max entries, optionally
// including column and partition-key schemas. The second return value
// reports whether the listing was cut short.
func (c *Client) Tables(ctx context.Context, database string, max int, includeSchema bool) ([]Table, bool, error) {
	if database == "" {
		return nil, false, &ValidationError{Reason: "missing database name"}
	}
	if max <= 0 {
		max = DefaultMaxCatalogEntries
	}

	tables := []Table{}
	pager := glue.NewGetTablesPaginator(c.catalog, &glue.GetTablesInput{
		DatabaseName: aws.String(database),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("athena: list tables in %q: %w", database, err)
		}
		for _, t := range page.TableList {
			entry := Table{Name: aws.ToString(t.Name)}
			if includeSchema {
				entry.Columns = convertColumns(storageColumns(t))
				entry.Partitions = convertColumns(t.PartitionKeys)
			}
			tables = append(tables, entry)
			if len(tables) >= max {
				return tables, true, nil
			}
		}
	}
	return tables, false, nil
}

// TableSchema fetches the full schema of one catalog table.
func (c *Client) TableSchema(ctx context.Context, database, table string) (*Table, error) {
	if database == "" || table == "" {
		return nil, &ValidationError{Reason: "missing database or table name"}
	}

	out, err := c.catalog.GetTable(ctx, &glue.GetTableInput{
		DatabaseName: aws.String(database),
		Name:         aws.String(table),
	})
	if err != nil {
		return nil, fmt.Errorf("athena: get table %s.%s: %w", database, table, err)
	}
	if out.Table == nil {
		return nil, fmt.Errorf("athena: get table %s.%s: empty response", database, table)
	}

	return &Table{
		Name:       aws.ToString(out.Table.Name),
		Columns:    convertColumns(storageColumns(*out.Table)),
		Partitions: convertColumns(out.Table.PartitionKeys),
	}, nil
}

func storageColumns(t gluetypes.Table) []gluetypes.Column {
	if t.StorageDescriptor == nil {
		return nil
	}
	return t.StorageDescriptor.Columns
}

func convertColumns(cols []gluetypes.Column) []Column {
	out := make([]Column, 0, len(cols))
	for _, c := range cols {
		out = append(out, Column{
			Name: aws.ToString(c.Name),
			Type: aws.ToString(c.Type),
		})
	}
	return out
}
