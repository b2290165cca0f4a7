package remote

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"dbdock/pkg/config"
)

// S3 replicates artifacts to an S3-compatible bucket
type S3 struct {
	client *s3.Client
	cfg    *config.S3Config
}

// NewS3 creates an S3 replication target. A custom endpoint supports
// B2, MinIO and other S3-compatible services.
func NewS3(cfg *config.S3Config) (*S3, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID && cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					SigningRegion:     cfg.Region,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3{client: s3.NewFromConfig(awsCfg), cfg: cfg}, nil
}

// Upload copies a local artifact into the bucket
func (s *S3) Upload(localPath, remoteName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer file.Close()

	_, err = s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(remoteName)),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", remoteName, err)
	}
	return nil
}

// List returns the replicated artifacts under the given prefix
func (s *S3) List(prefix string) ([]Artifact, error) {
	var artifacts []Artifact

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(s.key(prefix)),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			if strings.HasSuffix(*obj.Key, "/") {
				continue
			}
			var size int64
			if obj.Size != nil {
				size = *obj.Size
			}
			name := *obj.Key
			if base := s.key(""); base != "" {
				name = strings.TrimPrefix(name, base+"/")
			}
			artifacts = append(artifacts, Artifact{
				Name:    name,
				Size:    size,
				ModTime: obj.LastModified.UTC(),
			})
		}
	}
	return artifacts, nil
}

// Close closes any open connections
func (s *S3) Close() error {
	return nil
}

func (s *S3) key(remoteName string) string {
	key := path.Join(s.cfg.Path, remoteName)
	return strings.TrimPrefix(key, "./")
}
