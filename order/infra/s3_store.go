package infra

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"order-gateway/order/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectPutter é a parte do *s3.Client usada pelo S3Store.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store arquiva cada pedido como um objeto JSON: <prefix>YYYY/MM/DD/<orderId>.json.
type S3Store struct {
	client objectPutter
	bucket string
	prefix string
}

type S3StoreConfig struct {
	Bucket   string
	Region   string
	Endpoint string // MinIO/LocalStack
	Prefix   string
}

func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Store(client objectPutter, bucket, prefix string) *S3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) key(order domain.SanitizedOrder) string {
	day := order.ReceivedAt.UTC().Format("2006/01/02")
	return s.prefix + day + "/" + order.OrderID + ".json"
}

// Save implementa application.OrderStore.
func (s *S3Store) Save(ctx context.Context, order domain.SanitizedOrder) error {
	body, err := domain.MarshalIndent(struct {
		OrderID     string         `json:"orderId"`
		Variant     string         `json:"variant"`
		SubmittedAt string         `json:"submittedAt"`
		ClientIP    string         `json:"clientIp"`
		Fields      *domain.Object `json:"fields"`
	}{order.OrderID, order.Variant, order.SubmittedAt, order.ClientIP, order.Fields}, "  ")
	if err != nil {
		return fmt.Errorf("encode order %s: %w", order.OrderID, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(order)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put order %s: %w", order.OrderID, err)
	}
	return nil
}
