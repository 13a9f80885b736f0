// Package awsutil loads AWS SDK configuration for the S3 and SNS clients.
package awsutil

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Options selects the region and, optionally, static credentials.
// Empty credentials fall back to the SDK's default chain
// (environment, shared config, instance role).
type Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// LoadConfig builds an aws.Config from opts.
func LoadConfig(ctx context.Context, opts Options) (aws.Config, error) {
	loaders := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loaders = append(loaders, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	return cfg, nil
}
