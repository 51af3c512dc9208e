// Package report archives finished sync run reports to S3 so run
// history survives process restarts and deployments.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/outreach-sync/internal/pipeline"
)

// S3Archiver writes one JSON object per run report.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Archiver creates an archiver against the given bucket.
func NewS3Archiver(ctx context.Context, bucket, region, prefix string) (*S3Archiver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for report archiver: %w", err)
	}
	return &S3Archiver{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// key lays reports out by platform and run date for cheap prefix scans.
func (a *S3Archiver) key(r *pipeline.RunReport) string {
	return fmt.Sprintf("%s/%s/%s/%s.json",
		a.prefix, r.Platform, r.StartedAt.Format("2006-01-02"), r.ID)
}

// Archive uploads the report as a JSON object.
func (a *S3Archiver) Archive(ctx context.Context, r *pipeline.RunReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling run report %s: %w", r.ID, err)
	}

	key := a.key(r)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject %s/%s: %w", a.bucket, key, err)
	}
	return nil
}
