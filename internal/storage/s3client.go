package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the slice of the S3 client used here.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// EstimateArchive writes a JSON snapshot of every persisted estimate payload to S3.
type EstimateArchive struct {
	Client PutObjectAPI
	Bucket string
	Prefix string
	now    func() time.Time
}

// NewEstimateArchive loads the default AWS config. An empty bucket yields a disabled archive.
func NewEstimateArchive(ctx context.Context, bucket, prefix, region string) (*EstimateArchive, error) {
	if bucket == "" {
		return &EstimateArchive{}, nil
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &EstimateArchive{Client: s3.NewFromConfig(cfg), Bucket: bucket, Prefix: prefix, now: time.Now}, nil
}

func (a *EstimateArchive) Enabled() bool { return a != nil && a.Client != nil && a.Bucket != "" }

// ArchiveEstimate stores data under <prefix><id>/<timestamp>.json.
func (a *EstimateArchive) ArchiveEstimate(ctx context.Context, id int64, data []byte) error {
	if !a.Enabled() {
		return fmt.Errorf("s3 archive not configured")
	}
	key := a.Key(id)
	_, err := a.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", a.Bucket, key, err)
	}
	return nil
}

// Key builds the object key for an estimate snapshot.
func (a *EstimateArchive) Key(id int64) string {
	now := time.Now
	if a.now != nil {
		now = a.now
	}
	return fmt.Sprintf("%s%d/%s.json", a.Prefix, id, now().UTC().Format("20060102T150405Z"))
}
