package clients

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	cache "github.com/RobsonDevCode/metascan/internal/caching"
	"github.com/RobsonDevCode/metascan/internal/clients/models"
	"github.com/RobsonDevCode/metascan/internal/configuration"
	"github.com/sony/gobreaker"
)

const (
	apiKeyHeader   = "apikey"
	filenameHeader = "filename"

	hashEndpoint = "hash"
	fileEndpoint = "file"

	lookupCacheTTL = time.Hour
)

// errHashNotFound never leaves the package; it keeps misses out of the lookup cache.
var errHashNotFound = errors.New("hash not found")

type MetadefenderClientService interface {
	LookupHash(ctx context.Context, digest string) (models.Outcome, error)
	UploadFile(ctx context.Context, filePath string) (*models.Submission, error)
	GetScanResult(ctx context.Context, dataId string) (*models.ScanResult, error)
}

type MetadefenderClient struct {
	client             *http.Client
	cb                 *gobreaker.CircuitBreaker
	baseUrl            *url.URL
	cache              *cache.Cache
	apiKey             string
	multipartThreshold int64
	logger             *slog.Logger
}

func NewMetadefenderClient(config *configuration.Config, cache *cache.Cache, logger *slog.Logger) (*MetadefenderClient, error) {
	client := &http.Client{
		Timeout: config.MetadefenderClientSettings.RequestTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	cbSettings := gobreaker.Settings{
		Name:        "metadefender-client",
		MaxRequests: 5,
		Interval:    3 * time.Second,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	baseUrl, err := url.Parse(config.MetadefenderClientSettings.BaseUrl)
	if err != nil {
		return nil, NewValidationError("error parsing base url to a url type", err)
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, NewValidationError(fmt.Sprintf("base url must include scheme and host: %s", config.MetadefenderClientSettings.BaseUrl), nil)
	}

	return &MetadefenderClient{
		client:             client,
		cb:                 gobreaker.NewCircuitBreaker(cbSettings),
		baseUrl:            baseUrl,
		cache:              cache,
		apiKey:             config.MetadefenderClientSettings.ApiKey,
		multipartThreshold: config.UploadSettings.MultipartThreshold,
		logger:             logger,
	}, nil
}

// LookupHash asks the service for an existing report. A miss is the
// models.NotFound outcome, not an error.
func (c *MetadefenderClient) LookupHash(ctx context.Context, digest string) (models.Outcome, error) {
	if err := validateDigest(digest); err != nil {
		return nil, err
	}

	value, err := c.cache.GetOrCreate(hashEndpoint+":"+digest, lookupCacheTTL, func() (interface{}, error) {
		return c.lookupHash(ctx, digest)
	})
	if errors.Is(err, errHashNotFound) {
		return models.NotFound{Digest: digest}, nil
	}
	if err != nil {
		return nil, err
	}

	result, ok := value.(*models.ScanResult)
	if !ok {
		return nil, fmt.Errorf("unexpected response type when converting response")
	}
	c.logger.Debug("report found by hash", "sha256", digest, "cached_reports", c.cache.Len())

	return models.Found{Result: result, Source: models.SourceLookup}, nil
}

func (c *MetadefenderClient) lookupHash(ctx context.Context, digest string) (*models.ScanResult, error) {
	cbResult, err := c.execute(func() (interface{}, error) {
		request, err := c.newRequest(ctx, http.MethodGet, nil, hashEndpoint, digest)
		if err != nil {
			return nil, err
		}

		response, err := c.do(request)
		if err != nil {
			return nil, err
		}
		defer response.Body.Close()

		if response.StatusCode == http.StatusNotFound {
			c.logger.Debug("hash not found", "sha256", digest)
			return nil, errHashNotFound
		}

		if response.StatusCode != http.StatusOK {
			return nil, handleClientError(response)
		}

		return decodeScanResult(response)
	})
	if err != nil {
		return nil, err
	}

	return cbResult.(*models.ScanResult), nil
}

// UploadFile submits the file for scanning. Files smaller than the multipart
// threshold are sent as a raw body, anything larger as multipart/form-data.
func (c *MetadefenderClient) UploadFile(ctx context.Context, filePath string) (*models.Submission, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("failed to stat file: %s", filePath), err)
	}
	if stat.IsDir() {
		return nil, NewValidationError(fmt.Sprintf("%s is a directory", filePath), nil)
	}

	cbResult, err := c.execute(func() (interface{}, error) {
		file, err := os.Open(filePath)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("failed to open file: %s", filePath), err)
		}
		defer file.Close()

		var request *http.Request
		if stat.Size() < c.multipartThreshold {
			request, err = c.newRawUploadRequest(ctx, file, stat.Size())
		} else {
			request, err = c.newMultipartUploadRequest(ctx, file)
		}
		if err != nil {
			return nil, err
		}

		response, err := c.do(request)
		if err != nil {
			return nil, err
		}
		defer response.Body.Close()

		if response.StatusCode != http.StatusOK {
			return nil, handleClientError(response)
		}

		var submission models.Submission
		if err := json.NewDecoder(response.Body).Decode(&submission); err != nil {
			return nil, NewServiceError("failed to decode upload response", response.StatusCode, 0, err)
		}

		if submission.Status != models.StatusInQueue || submission.DataId == "" {
			return nil, NewServiceError(fmt.Sprintf("file was not queued for scanning, status %q", submission.Status), response.StatusCode, 0, nil)
		}

		return &submission, nil
	})
	if err != nil {
		return nil, err
	}

	return cbResult.(*models.Submission), nil
}

func (c *MetadefenderClient) newRawUploadRequest(ctx context.Context, file *os.File, size int64) (*http.Request, error) {
	request, err := c.newRequest(ctx, http.MethodPost, file, fileEndpoint)
	if err != nil {
		return nil, err
	}

	request.ContentLength = size
	if size == 0 {
		request.Body = http.NoBody
	}
	request.Header.Set("Content-Type", "application/octet-stream")
	request.Header.Set(filenameHeader, filepath.Base(file.Name()))

	c.logger.Debug("uploading raw body", "file", file.Name(), "size", size)
	return request, nil
}

func (c *MetadefenderClient) newMultipartUploadRequest(ctx context.Context, file *os.File) (*http.Request, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", filepath.Base(file.Name()))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	request, err := c.newRequest(ctx, http.MethodPost, pr, fileEndpoint)
	if err != nil {
		pr.Close()
		return nil, err
	}

	request.Header.Set("Content-Type", writer.FormDataContentType())
	request.Header.Set(filenameHeader, filepath.Base(file.Name()))

	c.logger.Debug("uploading multipart body", "file", file.Name())
	return request, nil
}

// GetScanResult fetches the current state of a submission.
func (c *MetadefenderClient) GetScanResult(ctx context.Context, dataId string) (*models.ScanResult, error) {
	if dataId == "" {
		return nil, NewValidationError("data id is empty", nil)
	}

	cbResult, err := c.execute(func() (interface{}, error) {
		request, err := c.newRequest(ctx, http.MethodGet, nil, fileEndpoint, dataId)
		if err != nil {
			return nil, err
		}

		response, err := c.do(request)
		if err != nil {
			return nil, err
		}
		defer response.Body.Close()

		if response.StatusCode != http.StatusOK {
			return nil, handleClientError(response)
		}

		return decodeScanResult(response)
	})
	if err != nil {
		return nil, err
	}

	return cbResult.(*models.ScanResult), nil
}

func (c *MetadefenderClient) execute(req func() (interface{}, error)) (interface{}, error) {
	result, err := c.cb.Execute(req)
	if err != nil {
		var clientErr *Error
		if errors.Is(err, errHashNotFound) || errors.As(err, &clientErr) {
			return nil, err
		}
		return nil, classifyTransportError(err)
	}

	return result, nil
}

func (c *MetadefenderClient) newRequest(ctx context.Context, method string, body io.Reader, path ...string) (*http.Request, error) {
	if c.apiKey == "" {
		return nil, NewValidationError(fmt.Sprintf("api key is not configured, run setup or set %s", configuration.EnvApiKey), nil)
	}

	endpoint := c.baseUrl.JoinPath(path...)
	request, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, NewConnectionError("failed to create http request", err)
	}

	request.Header.Set(apiKeyHeader, c.apiKey)
	request.Header.Set("Accept", "application/json")

	return request, nil
}

func (c *MetadefenderClient) do(request *http.Request) (*http.Response, error) {
	start := time.Now()
	response, err := c.client.Do(request)
	if err != nil {
		c.logger.Debug("request failed", "method", request.Method, "url", request.URL.String(), "error", err)
		return nil, classifyTransportError(err)
	}

	c.logger.Debug("request completed", "method", request.Method, "url", request.URL.String(),
		"status", response.StatusCode, "duration", time.Since(start))
	return response, nil
}

func decodeScanResult(response *http.Response) (*models.ScanResult, error) {
	var result models.ScanResult
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, NewServiceError("failed to decode scan result", response.StatusCode, 0, err)
	}

	return &result, nil
}

func handleClientError(response *http.Response) error {
	var clientError models.ErrorResponse
	if err := json.NewDecoder(response.Body).Decode(&clientError); err != nil {
		return NewServiceError(fmt.Sprintf("unexpected status %d and failed to read client error", response.StatusCode), response.StatusCode, 0, err)
	}

	msg := joinMessages(clientError.Error.Messages)
	if msg == "" {
		msg = http.StatusText(response.StatusCode)
	}

	switch response.StatusCode {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &Error{Code: CodeTimeout, Message: msg, StatusCode: response.StatusCode, ApiCode: clientError.Error.Code}
	default:
		return NewServiceError(msg, response.StatusCode, clientError.Error.Code, nil)
	}
}

// validateDigest accepts the md5, sha1 and sha256 hex digests the hash endpoint understands.
func validateDigest(digest string) error {
	switch len(digest) {
	case 32, 40, 64:
	default:
		return NewValidationError(fmt.Sprintf("invalid hash %q: unexpected length %d", digest, len(digest)), nil)
	}

	if _, err := hex.DecodeString(digest); err != nil {
		return NewValidationError(fmt.Sprintf("invalid hash %q", digest), err)
	}

	return nil
}
