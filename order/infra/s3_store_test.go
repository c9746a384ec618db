package infra

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	err   error
	input *s3.PutObjectInput
	body  string
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Store_Save(t *testing.T) {
	fake := &fakePutter{}
	store := newS3Store(fake, "orders-archive", "landing")

	require.NoError(t, store.Save(context.Background(), sampleOrder(t)))

	assert.Equal(t, "orders-archive", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "landing/2026/03/05/INV-ABC123.json", aws.ToString(fake.input.Key))
	assert.Equal(t, "application/json", aws.ToString(fake.input.ContentType))
	assert.Contains(t, fake.body, `"orderId": "INV-ABC123"`)
	assert.Contains(t, fake.body, `"name": "Tom &amp; Jerry"`)
}

func TestS3Store_PutError(t *testing.T) {
	store := newS3Store(&fakePutter{err: errors.New("AccessDenied")}, "b", "")
	err := store.Save(context.Background(), sampleOrder(t))
	assert.ErrorContains(t, err, "AccessDenied")
}
