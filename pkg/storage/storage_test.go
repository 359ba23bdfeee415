package storage

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testConnectionString = "DefaultEndpointsProtocol=https;AccountName=test;AccountKey=dGVzdGtleQ==;EndpointSuffix=core.windows.net"

func TestNewAzureBlobClient(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name             string
		connectionString string
		containerName    string
		logger           *zap.Logger
		wantErr          bool
		errContains      string
	}{
		{
			name:             "empty connection string",
			connectionString: "",
			containerName:    "dead-letters",
			logger:           logger,
			wantErr:          true,
			errContains:      "connection string is required",
		},
		{
			name:             "empty container name",
			connectionString: testConnectionString,
			containerName:    "",
			logger:           logger,
			wantErr:          true,
			errContains:      "container name is required",
		},
		{
			name:             "nil logger",
			connectionString: testConnectionString,
			containerName:    "dead-letters",
			logger:           nil,
			wantErr:          true,
			errContains:      "logger is required",
		},
		{
			name:             "missing account key",
			connectionString: "DefaultEndpointsProtocol=https;AccountName=test",
			containerName:    "dead-letters",
			logger:           logger,
			wantErr:          true,
			errContains:      "account name and key are required",
		},
		{
			name:             "valid connection string",
			connectionString: testConnectionString,
			containerName:    "dead-letters",
			logger:           logger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewAzureBlobClient(tt.connectionString, tt.containerName, tt.logger)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, client)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "https://test.blob.core.windows.net", client.serviceURL)
		})
	}
}

func TestNewAzureBlobClientHonorsExplicitEndpoint(t *testing.T) {
	connectionString := "AccountName=devstoreaccount1;AccountKey=dGVzdGtleQ==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1"

	client, err := NewAzureBlobClient(connectionString, "dead-letters", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:10000/devstoreaccount1", client.serviceURL)
}

func TestParseConnectionString(t *testing.T) {
	params := parseConnectionString("AccountName=test; AccountKey=c2VjcmV0==;;BlobEndpoint=http://localhost:10000/test;=orphan")

	assert.Equal(t, "test", params["AccountName"])
	assert.Equal(t, "c2VjcmV0==", params["AccountKey"], "values keep their embedded equals signs")
	assert.Equal(t, "http://localhost:10000/test", params["BlobEndpoint"])
	assert.NotContains(t, params, "")
}

func TestExtractBlobPath(t *testing.T) {
	client, err := NewAzureBlobClient(testConnectionString, "dead-letters", zap.NewNop())
	require.NoError(t, err)

	tests := []struct {
		name      string
		reference string
		want      string
		wantErr   bool
	}{
		{
			name:      "bare key",
			reference: "enrich/exec-1/item.json",
			want:      "enrich/exec-1/item.json",
		},
		{
			name:      "full blob URL",
			reference: "https://test.blob.core.windows.net/dead-letters/enrich/exec-1/item.json",
			want:      "enrich/exec-1/item.json",
		},
		{
			name:      "url with sas query",
			reference: "https://test.blob.core.windows.net/dead-letters/item.json?sig=abc&se=2026",
			want:      "item.json",
		},
		{
			name:      "leading slash and container prefix",
			reference: "/dead-letters/item.json",
			want:      "item.json",
		},
		{
			name:      "percent encoded path",
			reference: "enrich/item%201.json",
			want:      "enrich/item 1.json",
		},
		{
			name:      "empty reference",
			reference: "   ",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.extractBlobPath(tt.reference)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewS3Client(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name        string
		cfg         S3Config
		logger      *zap.Logger
		wantErr     bool
		errContains string
	}{
		{
			name:        "missing endpoint",
			cfg:         S3Config{Bucket: "dead-letters", AccessKeyID: "a", SecretAccessKey: "s"},
			logger:      logger,
			wantErr:     true,
			errContains: "endpoint is required",
		},
		{
			name:        "missing bucket",
			cfg:         S3Config{Endpoint: "localhost:9000", AccessKeyID: "a", SecretAccessKey: "s"},
			logger:      logger,
			wantErr:     true,
			errContains: "bucket is required",
		},
		{
			name:        "missing credentials",
			cfg:         S3Config{Endpoint: "localhost:9000", Bucket: "dead-letters"},
			logger:      logger,
			wantErr:     true,
			errContains: "access key and secret key are required",
		},
		{
			name:        "nil logger",
			cfg:         S3Config{Endpoint: "localhost:9000", Bucket: "dead-letters", AccessKeyID: "a", SecretAccessKey: "s"},
			logger:      nil,
			wantErr:     true,
			errContains: "logger is required",
		},
		{
			name:   "valid config",
			cfg:    S3Config{Endpoint: "localhost:9000", Bucket: "dead-letters", AccessKeyID: "a", SecretAccessKey: "s"},
			logger: logger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewS3Client(tt.cfg, tt.logger)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, client)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "dead-letters", client.bucket)
		})
	}
}

func TestS3ExtractKey(t *testing.T) {
	client, err := NewS3Client(S3Config{
		Endpoint:        "localhost:9000",
		Bucket:          "dead-letters",
		AccessKeyID:     "a",
		SecretAccessKey: "s",
	}, zap.NewNop())
	require.NoError(t, err)

	tests := []struct {
		name      string
		reference string
		want      string
		wantErr   bool
	}{
		{name: "bare key", reference: "enrich/item.json", want: "enrich/item.json"},
		{name: "object url", reference: "http://localhost:9000/dead-letters/enrich/item.json", want: "enrich/item.json"},
		{name: "bucket prefix", reference: "dead-letters/item.json", want: "item.json"},
		{name: "empty", reference: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.extractKey(tt.reference)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{
			name: "azure 404",
			err:  &azcore.ResponseError{ErrorCode: "BlobNotFound", StatusCode: http.StatusNotFound},
			want: true,
		},
		{
			name: "azure 500",
			err:  &azcore.ResponseError{ErrorCode: "InternalError", StatusCode: http.StatusInternalServerError},
			want: false,
		},
		{
			name: "minio missing key",
			err:  minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound},
			want: true,
		},
		{
			name: "minio access denied",
			err:  minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}

// Round-trip tests need a running backend; they are opt-in via environment
// variables so the suite stays green on bare machines.

func TestAzureBlobClientRoundTrip(t *testing.T) {
	connectionString := os.Getenv("AZURITE_CONNECTION_STRING")
	if connectionString == "" {
		t.Skip("set AZURITE_CONNECTION_STRING to run against Azurite")
	}

	client, err := NewAzureBlobClient(connectionString, "storage-roundtrip", zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	payload := []byte(`{"node_id":"enrich","item":42}`)

	ref, err := client.Upload(ctx, "roundtrip/item.json", payload, "application/json")
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	got, err := client.Download(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestS3ClientRoundTrip(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("set MINIO_ENDPOINT (plus MINIO_ACCESS_KEY/MINIO_SECRET_KEY) to run against MinIO")
	}

	client, err := NewS3Client(S3Config{
		Endpoint:        endpoint,
		AccessKeyID:     os.Getenv("MINIO_ACCESS_KEY"),
		SecretAccessKey: os.Getenv("MINIO_SECRET_KEY"),
		Bucket:          "storage-roundtrip",
	}, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	payload := []byte(`{"node_id":"enrich","item":42}`)

	ref, err := client.Upload(ctx, "roundtrip/item.json", payload, "application/json")
	require.NoError(t, err)

	got, err := client.Download(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
