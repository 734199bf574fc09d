// server/internal/s3/uploader.go
package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"waste-pickup-api-server/config"
	"waste-pickup-api-server/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type Uploader struct {
	Client           *s3.Client
	Bucket           string
	Region           string
	CloudFrontDomain string
}

func NewUploader(cfg config.S3Config) (*Uploader, error) {
	sdkConfig, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(sdkConfig)

	return &Uploader{
		Client:           s3Client,
		Bucket:           cfg.Bucket,
		Region:           cfg.Region,
		CloudFrontDomain: cfg.CloudFrontDomain,
	}, nil
}

// Upload stores image bytes under a generated object key and returns the
// durable reference. The object key doubles as the image's public ID.
func (u *Uploader) Upload(ctx context.Context, data []byte, filename string) (models.ImageRef, error) {
	key := fmt.Sprintf("pickups/%s%s", uuid.New().String(), strings.ToLower(filepath.Ext(filename)))

	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(http.DetectContentType(data)),
	})
	if err != nil {
		return models.ImageRef{}, fmt.Errorf("failed to upload file to S3: %w", err)
	}

	var url string
	if u.CloudFrontDomain != "" {
		url = fmt.Sprintf("https://%s/%s", u.CloudFrontDomain, key)
	} else {
		url = fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.Bucket, u.Region, key)
	}

	return models.ImageRef{PublicID: key, SecureURL: url}, nil
}
