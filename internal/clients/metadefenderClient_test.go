package clients

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cache "github.com/RobsonDevCode/metascan/internal/caching"
	"github.com/RobsonDevCode/metascan/internal/clients/models"
	"github.com/RobsonDevCode/metascan/internal/configuration"
	"github.com/RobsonDevCode/metascan/internal/logging"
	"github.com/RobsonDevCode/metascan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eicarSha256 = "275a021bbfb6489e54d471899f7db9d1663fc695ec2fe2a2c4538aabf651fd0f"

func newTestClient(t *testing.T, baseUrl string, threshold int64) *MetadefenderClient {
	t.Helper()

	config := configuration.Default()
	config.MetadefenderClientSettings.BaseUrl = baseUrl
	config.MetadefenderClientSettings.ApiKey = testutil.ApiKey
	config.MetadefenderClientSettings.RequestTimeout = 5 * time.Second
	if threshold > 0 {
		config.UploadSettings.MultipartThreshold = threshold
	}

	client, err := NewMetadefenderClient(config, &cache.Cache{}, logging.Discard())
	require.NoError(t, err)
	return client
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestNewMetadefenderClientRejectsBadBaseUrl(t *testing.T) {
	for _, baseUrl := range []string{"", "api.metadefender.com/v4", "://bad"} {
		config := configuration.Default()
		config.MetadefenderClientSettings.BaseUrl = baseUrl

		_, err := NewMetadefenderClient(config, &cache.Cache{}, logging.Discard())
		require.Error(t, err, baseUrl)
		assert.True(t, IsValidationError(err), baseUrl)
	}
}

func TestLookupHash(t *testing.T) {
	mock := testutil.NewMockMetadefender(t)
	mock.Reports[eicarSha256] = testutil.Report("eicar.com", 100)

	t.Run("found", func(t *testing.T) {
		client := newTestClient(t, mock.BaseUrl(), 0)

		outcome, err := client.LookupHash(context.Background(), eicarSha256)
		require.NoError(t, err)

		found, ok := outcome.(models.Found)
		require.True(t, ok, "expected Found, got %T", outcome)
		assert.Equal(t, models.SourceLookup, found.Source)
		assert.Equal(t, "eicar.com", found.Result.FileInfo.DisplayName)
		assert.Equal(t, "Infected", found.Result.ScanResults.ScanAllResultA)
		assert.Equal(t, "Eicar-Signature", found.Result.ScanResults.ScanDetails["ClamAV"].ThreatFound)
		assert.Equal(t, 1, found.Result.ScanResults.ScanDetails["ClamAV"].ScanResultI)
	})

	t.Run("not found is an outcome", func(t *testing.T) {
		client := newTestClient(t, mock.BaseUrl(), 0)
		digest := strings.Repeat("a", 64)

		outcome, err := client.LookupHash(context.Background(), digest)
		require.NoError(t, err)
		assert.Equal(t, models.NotFound{Digest: digest}, outcome)
	})

	t.Run("invalid digest never reaches the service", func(t *testing.T) {
		client := newTestClient(t, mock.BaseUrl(), 0)
		before := mock.LookupCalls()

		_, err := client.LookupHash(context.Background(), "not-a-hash")
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Equal(t, before, mock.LookupCalls())
	})
}

func TestLookupHashCachesFoundButNotMisses(t *testing.T) {
	mock := testutil.NewMockMetadefender(t)
	mock.Reports[eicarSha256] = testutil.Report("eicar.com", 100)
	client := newTestClient(t, mock.BaseUrl(), 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := client.LookupHash(ctx, eicarSha256)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, mock.LookupCalls())
	assert.Equal(t, 1, client.cache.Len())

	missing := strings.Repeat("b", 64)
	for i := 0; i < 2; i++ {
		_, err := client.LookupHash(ctx, missing)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, mock.LookupCalls())
	assert.Equal(t, 1, client.cache.Len())
}

func TestLookupHashServiceErrors(t *testing.T) {
	t.Run("invalid api key", func(t *testing.T) {
		mock := testutil.NewMockMetadefender(t)
		config := configuration.Default()
		config.MetadefenderClientSettings.BaseUrl = mock.BaseUrl()
		config.MetadefenderClientSettings.ApiKey = "wrong"
		client, err := NewMetadefenderClient(config, &cache.Cache{}, logging.Discard())
		require.NoError(t, err)

		_, err = client.LookupHash(context.Background(), eicarSha256)
		require.Error(t, err)
		assert.True(t, IsServiceError(err))

		var clientErr *Error
		require.ErrorAs(t, err, &clientErr)
		assert.Equal(t, http.StatusUnauthorized, clientErr.StatusCode)
		assert.Equal(t, 401006, clientErr.ApiCode)
		assert.Equal(t, "Invalid API key", clientErr.Message)
	})

	t.Run("missing api key", func(t *testing.T) {
		mock := testutil.NewMockMetadefender(t)
		config := configuration.Default()
		config.MetadefenderClientSettings.BaseUrl = mock.BaseUrl()
		client, err := NewMetadefenderClient(config, &cache.Cache{}, logging.Discard())
		require.NoError(t, err)

		_, err = client.LookupHash(context.Background(), eicarSha256)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Equal(t, 0, mock.LookupCalls())
	})

	t.Run("server error without json body", func(t *testing.T) {
		mock := testutil.NewMockMetadefender(t)
		mock.LookupHandler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("oops")) //nolint:errcheck
		}
		client := newTestClient(t, mock.BaseUrl(), 0)

		_, err := client.LookupHash(context.Background(), eicarSha256)
		require.Error(t, err)
		assert.True(t, IsServiceError(err))
	})

	t.Run("malformed report", func(t *testing.T) {
		mock := testutil.NewMockMetadefender(t)
		mock.LookupHandler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("{not json")) //nolint:errcheck
		}
		client := newTestClient(t, mock.BaseUrl(), 0)

		_, err := client.LookupHash(context.Background(), eicarSha256)
		require.Error(t, err)
		assert.True(t, IsServiceError(err))
	})
}

func TestLookupHashConnectionError(t *testing.T) {
	mock := testutil.NewMockMetadefender(t)
	baseUrl := mock.BaseUrl()
	mock.Server.Close()

	client := newTestClient(t, baseUrl, 0)
	_, err := client.LookupHash(context.Background(), eicarSha256)
	require.Error(t, err)
	assert.True(t, IsConnectionError(err), "got %v", err)
}

func TestLookupHashCanceledContext(t *testing.T) {
	mock := testutil.NewMockMetadefender(t)
	client := newTestClient(t, mock.BaseUrl(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.LookupHash(ctx, eicarSha256)
	require.Error(t, err)
	assert.True(t, IsTimeoutError(err), "got %v", err)
}

func TestUploadFileRawBelowThreshold(t *testing.T) {
	mock := testutil.NewMockMetadefender(t)
	client := newTestClient(t, mock.BaseUrl(), 16)

	data := []byte("fifteen bytes!!")
	path := writeTempFile(t, "small.bin", data)

	submission, err := client.UploadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, testutil.DataId, submission.DataId)
	assert.Equal(t, models.StatusInQueue, submission.Status)

	uploads := mock.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "application/octet-stream", uploads[0].ContentType)
	assert.Equal(t, int64(len(data)), uploads[0].ContentLength)
	assert.Equal(t, "small.bin", uploads[0].Filename)
	assert.Equal(t, data, uploads[0].Body)
}

func TestUploadFileMultipartAtThreshold(t *testing.T) {
	mock := testutil.NewMockMetadefender(t)
	client := newTestClient(t, mock.BaseUrl(), 16)

	for _, size := range []int{16, 17} {
		data := bytes.Repeat([]byte{'x'}, size)
		path := writeTempFile(t, "large.bin", data)

		_, err := client.UploadFile(context.Background(), path)
		require.NoError(t, err)
	}

	uploads := mock.Uploads()
	require.Len(t, uploads, 2)
	for i, upload := range uploads {
		assert.True(t, strings.HasPrefix(upload.ContentType, "multipart/form-data"), upload.ContentType)
		assert.Equal(t, "large.bin", upload.Filename)
		assert.Len(t, upload.Body, 16+i)
	}
}

func TestUploadFileEmpty(t *testing.T) {
	mock := testutil.NewMockMetadefender(t)
	client := newTestClient(t, mock.BaseUrl(), 0)

	path := writeTempFile(t, "empty", nil)
	_, err := client.UploadFile(context.Background(), path)
	require.NoError(t, err)

	uploads := mock.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "application/octet-stream", uploads[0].ContentType)
	assert.Empty(t, uploads[0].Body)
}

func TestUploadFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		mock := testutil.NewMockMetadefender(t)
		client := newTestClient(t, mock.BaseUrl(), 0)

		_, err := client.UploadFile(context.Background(), filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Empty(t, mock.Uploads())
	})

	t.Run("not queued", func(t *testing.T) {
		mock := testutil.NewMockMetadefender(t)
		mock.UploadHandler = testutil.JSONHandler(http.StatusOK, map[string]interface{}{"status": "rejected"})
		client := newTestClient(t, mock.BaseUrl(), 0)

		_, err := client.UploadFile(context.Background(), writeTempFile(t, "f", []byte("x")))
		require.Error(t, err)
		assert.True(t, IsServiceError(err))
	})

	t.Run("service rejects file", func(t *testing.T) {
		mock := testutil.NewMockMetadefender(t)
		mock.UploadHandler = testutil.JSONHandler(http.StatusBadRequest, testutil.ErrorBody(400087, "Invalid file", "Upload failed"))
		client := newTestClient(t, mock.BaseUrl(), 0)

		_, err := client.UploadFile(context.Background(), writeTempFile(t, "f", []byte("x")))
		require.Error(t, err)

		var clientErr *Error
		require.ErrorAs(t, err, &clientErr)
		assert.Equal(t, CodeService, clientErr.Code)
		assert.Equal(t, "Invalid file; Upload failed", clientErr.Message)
	})
}

func TestGetScanResult(t *testing.T) {
	mock := testutil.NewMockMetadefender(t)
	mock.Progress = []int{40}
	client := newTestClient(t, mock.BaseUrl(), 0)

	result, err := client.GetScanResult(context.Background(), testutil.DataId)
	require.NoError(t, err)
	assert.Equal(t, 40, result.ScanResults.ProgressPercentage)
	assert.False(t, result.IsComplete())

	_, err = client.GetScanResult(context.Background(), "unknown")
	require.Error(t, err)
	assert.True(t, IsServiceError(err))

	_, err = client.GetScanResult(context.Background(), "")
	assert.True(t, IsValidationError(err))
}

func TestBreakerIgnoresClientRejections(t *testing.T) {
	mock := testutil.NewMockMetadefender(t)
	client := newTestClient(t, mock.BaseUrl(), 0)

	for i := 0; i < 10; i++ {
		_, err := client.LookupHash(context.Background(), strings.Repeat("c", 64))
		require.NoError(t, err)
	}

	assert.Equal(t, "closed", client.cb.State().String())
}

func TestBreakerOpensAfterServerFailures(t *testing.T) {
	mock := testutil.NewMockMetadefender(t)
	mock.PollHandler = testutil.JSONHandler(http.StatusBadGateway, testutil.ErrorBody(502000, "bad gateway"))
	client := newTestClient(t, mock.BaseUrl(), 0)

	for i := 0; i < 5; i++ {
		_, err := client.GetScanResult(context.Background(), testutil.DataId)
		require.True(t, IsServiceError(err))
	}

	_, err := client.GetScanResult(context.Background(), testutil.DataId)
	require.Error(t, err)
	assert.True(t, IsConnectionError(err), "got %v", err)
	assert.Equal(t, 5, mock.PollCalls())
}
