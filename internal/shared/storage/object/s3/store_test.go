package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-backend/internal/shared/storage/object"
)

type fakeAPI struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	getErr  error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{objects: map[string][]byte{}}
}

func (f *fakeAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeAPI) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestSaveOpenDelete(t *testing.T) {
	api := newFakeAPI()
	store, err := NewWithAPI(api, "bucket", "/pdfs/", "")
	require.NoError(t, err)
	ctx := context.Background()

	payload := "%PDF-1.4\ninvoice body"
	key, size, mime, err := store.Save(ctx, "acme.pdf", strings.NewReader(payload))
	require.NoError(t, err)
	assert.Len(t, key, 32)
	assert.Equal(t, int64(len(payload)), size)
	assert.Equal(t, "application/pdf", mime)

	require.Len(t, api.puts, 1)
	put := api.puts[0]
	assert.Equal(t, "pdfs/"+key, aws.ToString(put.Key))
	assert.Equal(t, "acme.pdf", put.Metadata["file-name"])
	assert.Equal(t, s3types.ServerSideEncryptionAes256, put.ServerSideEncryption)

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, payload, string(got))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, object.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, key), object.ErrNotFound)
}

func TestSaveUsesKMSWhenConfigured(t *testing.T) {
	api := newFakeAPI()
	store, err := NewWithAPI(api, "bucket", "", "kms-key-1")
	require.NoError(t, err)

	_, _, _, err = store.Save(context.Background(), "a.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, s3types.ServerSideEncryptionAwsKms, api.puts[0].ServerSideEncryption)
	assert.Equal(t, "kms-key-1", aws.ToString(api.puts[0].SSEKMSKeyId))
}

func TestOpenWrapsOtherErrors(t *testing.T) {
	api := newFakeAPI()
	api.getErr = &smithy.GenericAPIError{Code: "AccessDenied"}
	store, err := NewWithAPI(api, "bucket", "", "")
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, object.ErrNotFound)
}

func TestNewWithAPIRequiresBucket(t *testing.T) {
	_, err := NewWithAPI(newFakeAPI(), " ", "", "")
	require.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "0af3c9", want: "0af3c9"},
		{name: "simple prefix", prefix: "invoices", key: "0af3c9", want: "invoices/0af3c9"},
		{name: "prefix slashes", prefix: "/invoices/", key: "/0af3c9", want: "invoices/0af3c9"},
		{name: "nested prefix", prefix: "root/pdfs", key: "0af3c9", want: "root/pdfs/0af3c9"},
		{name: "empty key", prefix: "root", key: "", want: "root"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewWithAPI(newFakeAPI(), "b", tt.prefix, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, store.objectKey(tt.key))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "no such key", err: fmt.Errorf("get: %w", &s3types.NoSuchKey{}), want: true},
		{name: "head not found", err: &s3types.NotFound{}, want: true},
		{name: "generic api error", err: &smithy.GenericAPIError{Code: "NoSuchKey"}, want: true},
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDenied"}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}
