package athena

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// RawOutput is a (possibly truncated) read of a query's result object.
type RawOutput struct {
	Bucket        string `json:"bucket"`
	Key           string `json:"key"`
	ContentLength int64  `json:"content_length"`
	Truncated     bool   `json:"truncated"`
	Text          string `json:"csv"`
}

// ParseS3URI splits an s3://bucket/key URI into bucket and key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	const scheme = "s3://"
	if !strings.HasPrefix(uri, scheme) {
		return "", "", fmt.Errorf("athena: %q is not an s3:// URI", uri)
	}
	rest := uri[len(scheme):]
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("athena: malformed s3 URI %q", uri)
	}
	return bucket, key, nil
}

// RawOutput reads the result object of the query execution with the given id
// as text. maxBytes caps the read via a ranged GET; zero or negative applies
// DefaultMaxBytes. Invalid byte sequences are replaced, the text is always
// valid UTF-8.
func (c *Client) RawOutput(ctx context.Context, id string, maxBytes int64) (*RawOutput, error) {
	if id == "" {
		return nil, &ValidationError{Reason: "missing query execution id"}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	st, err := c.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	bucket, key, err := ParseS3URI(st.OutputLocation)
	if err != nil {
		return nil, err
	}

	head, err := c.store.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("athena: head result object: %w", err)
	}
	total := aws.ToInt64(head.ContentLength)

	get := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	truncated := maxBytes < total
	if truncated {
		get.Range = aws.String(fmt.Sprintf("bytes=0-%d", maxBytes-1))
	}

	obj, err := c.store.GetObject(ctx, get)
	if err != nil {
		return nil, fmt.Errorf("athena: get result object: %w", err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("athena: read result object: %w", err)
	}

	return &RawOutput{
		Bucket:        bucket,
		Key:           key,
		ContentLength: total,
		Truncated:     truncated,
		Text:          strings.ToValidUTF8(string(data), "�"),
	}, nil
}

// PresignURL generates a short-lived access URL for an object. expiry at or
// below zero applies DefaultPresignExpiry seconds.
func (c *Client) PresignURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	if bucket == "" || key == "" {
		return "", &ValidationError{Reason: "missing bucket or key"}
	}
	if expiry <= 0 {
		expiry = DefaultPresignExpiry * time.Second
	}

	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("athena: presign %s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}
