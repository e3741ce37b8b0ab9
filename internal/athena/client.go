// Package athena wraps the AWS Athena, Glue and S3 clients behind narrow
// interfaces and provides the pieces the data tools are built from: the SQL
// statement guard, the query submission/status/result calls, the bounded job
// poller, and raw result-object access.
//
// All AWS access goes through the small *API interfaces so tests can inject
// fakes; the concrete aws-sdk-go-v2 clients satisfy them directly.
package athena

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsathena "github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Defaults applied when a tool call omits the corresponding argument.
const (
	// DefaultMaxRows bounds the rows fetched from a successful query.
	DefaultMaxRows = 1000

	// DefaultMaxBytes bounds the raw result object read.
	DefaultMaxBytes = 2_000_000

	// DefaultPresignExpiry is the presigned-URL lifetime in seconds.
	DefaultPresignExpiry = 3600
)

// QueryAPI is the subset of the Athena SDK client used by query submission,
// status checks and result fetches.
type QueryAPI interface {
	StartQueryExecution(ctx context.Context, params *awsathena.StartQueryExecutionInput, optFns ...func(*awsathena.Options)) (*awsathena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *awsathena.GetQueryExecutionInput, optFns ...func(*awsathena.Options)) (*awsathena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *awsathena.GetQueryResultsInput, optFns ...func(*awsathena.Options)) (*awsathena.GetQueryResultsOutput, error)
}

// CatalogAPI is the subset of the Glue SDK client used by the catalog tools.
type CatalogAPI interface {
	GetDatabases(ctx context.Context, params *glue.GetDatabasesInput, optFns ...func(*glue.Options)) (*glue.GetDatabasesOutput, error)
	GetTables(ctx context.Context, params *glue.GetTablesInput, optFns ...func(*glue.Options)) (*glue.GetTablesOutput, error)
	GetTable(ctx context.Context, params *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error)
}

// ObjectStoreAPI is the subset of the S3 SDK client used to read result objects.
type ObjectStoreAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// PresignAPI generates short-lived access URLs for S3 objects.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// JobStatus is the observable state of one query execution.
type JobStatus struct {
	// State is the backend state name (QUEUED, RUNNING, SUCCEEDED, FAILED, CANCELLED).
	State string

	// Reason is the backend's state-change reason, set for failed queries.
	Reason string

	// OutputLocation is the s3:// URI of the result object.
	OutputLocation string
}

// ResultSet holds a bounded slice of a successful query's results. A nil
// cell marks a NULL value.
type ResultSet struct {
	Columns []string    `json:"columns"`
	Rows    [][]*string `json:"rows"`
}

// Client bundles the backend access the data tools need. The zero value is
// unusable; construct with New.
type Client struct {
	query   QueryAPI
	catalog CatalogAPI
	store   ObjectStoreAPI
	presign PresignAPI

	workgroup      string
	outputLocation string
}

// New creates a Client. workgroup and outputLocation configure where query
// executions run and where their results land; outputLocation must be an
// s3:// URI.
func New(query QueryAPI, catalog CatalogAPI, store ObjectStoreAPI, presign PresignAPI, workgroup, outputLocation string) (*Client, error) {
	if outputLocation == "" {
		return nil, fmt.Errorf("athena: outputLocation must not be empty")
	}
	if !strings.HasPrefix(outputLocation, "s3://") {
		return nil, fmt.Errorf("athena: outputLocation %q is not an s3:// URI", outputLocation)
	}
	if workgroup == "" {
		workgroup = "primary"
	}
	return &Client{
		query:          query,
		catalog:        catalog,
		store:          store,
		presign:        presign,
		workgroup:      workgroup,
		outputLocation: outputLocation,
	}, nil
}

// Submit validates sql against the statement guard and starts a query
// execution, returning its id. A guarded statement is rejected with
// *ValidationError before any backend call.
func (c *Client) Submit(ctx context.Context, sql string) (string, error) {
	if strings.TrimSpace(sql) == "" {
		return "", &ValidationError{Reason: "empty statement"}
	}
	if err := CheckStatement(sql); err != nil {
		return "", err
	}

	out, err := c.query.StartQueryExecution(ctx, &awsathena.StartQueryExecutionInput{
		QueryString: aws.String(sql),
		WorkGroup:   aws.String(c.workgroup),
		ResultConfiguration: &athenatypes.ResultConfiguration{
			OutputLocation: aws.String(c.outputLocation),
		},
	})
	if err != nil {
		return "", fmt.Errorf("athena: start query execution: %w", err)
	}
	return aws.ToString(out.QueryExecutionId), nil
}

// Status fetches the current state of the query execution with the given id.
func (c *Client) Status(ctx context.Context, id string) (*JobStatus, error) {
	if id == "" {
		return nil, &ValidationError{Reason: "missing query execution id"}
	}
	out, err := c.query.GetQueryExecution(ctx, &awsathena.GetQueryExecutionInput{
		QueryExecutionId: aws.String(id),
	})
	if err != nil {
		return nil, fmt.Errorf("athena: get query execution: %w", err)
	}

	st := &JobStatus{}
	if q := out.QueryExecution; q != nil {
		if q.Status != nil {
			st.State = string(q.Status.State)
			st.Reason = aws.ToString(q.Status.StateChangeReason)
		}
		if q.ResultConfiguration != nil {
			st.OutputLocation = aws.ToString(q.ResultConfiguration.OutputLocation)
		}
	}
	return st, nil
}

// Results fetches up to maxRows result rows of a succeeded query execution.
// The first row returned by the backend carries the column headers and is
// split off into ResultSet.Columns.
func (c *Client) Results(ctx context.Context, id string, maxRows int32) (*ResultSet, error) {
	if id == "" {
		return nil, &ValidationError{Reason: "missing query execution id"}
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	out, err := c.query.GetQueryResults(ctx, &awsathena.GetQueryResultsInput{
		QueryExecutionId: aws.String(id),
		MaxResults:       aws.Int32(maxRows),
	})
	if err != nil {
		return nil, fmt.Errorf("athena: get query results: %w", err)
	}

	rs := &ResultSet{Columns: []string{}, Rows: [][]*string{}}
	if out.ResultSet == nil || len(out.ResultSet.Rows) == 0 {
		return rs, nil
	}

	rows := out.ResultSet.Rows
	for _, col := range rows[0].Data {
		rs.Columns = append(rs.Columns, aws.ToString(col.VarCharValue))
	}
	for _, r := range rows[1:] {
		cells := make([]*string, 0, len(r.Data))
		for _, d := range r.Data {
			cells = append(cells, d.VarCharValue)
		}
		rs.Rows = append(rs.Rows, cells)
	}
	return rs, nil
}
