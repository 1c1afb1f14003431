package scannerService

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/RobsonDevCode/metascan/internal/clients"
	"github.com/RobsonDevCode/metascan/internal/clients/models"
	hashservice "github.com/RobsonDevCode/metascan/internal/services/hashService"
	pollservice "github.com/RobsonDevCode/metascan/internal/services/pollService"
	"github.com/fatih/color"
)

var ErrUploadDeclined = errors.New("upload declined")

type ScannerService interface {
	ScanFile(ctx context.Context, path string, options ScanOptions) (models.Outcome, error)
	LookupDigest(ctx context.Context, digest string) (models.Outcome, error)
}

type ScanOptions struct {
	// Rescan skips the hash lookup and always uploads.
	Rescan bool
	// Confirm is asked before uploading; nil uploads without asking.
	Confirm func(path string, digest string) (bool, error)
}

type Scanner struct {
	hasher hashservice.HashService
	client clients.MetadefenderClientService
	poller pollservice.PollService
	out    io.Writer
	logger *slog.Logger
}

func NewScanner(hasher hashservice.HashService,
	client clients.MetadefenderClientService,
	poller pollservice.PollService,
	out io.Writer,
	logger *slog.Logger) *Scanner {
	return &Scanner{
		hasher: hasher,
		client: client,
		poller: poller,
		out:    out,
		logger: logger,
	}
}

// ScanFile hashes the file, reuses an existing report when the service has
// one and otherwise uploads the file once and polls for its report.
// The outcome is models.Found or models.Timeout.
func (s *Scanner) ScanFile(ctx context.Context, path string, options ScanOptions) (models.Outcome, error) {
	digest, err := s.hasher.ComputeFileDigest(path)
	if err != nil {
		return nil, err
	}
	s.info("SHA256 of %s is %s", path, digest)

	if !options.Rescan {
		outcome, err := s.client.LookupHash(ctx, digest)
		if err != nil {
			return nil, err
		}

		switch o := outcome.(type) {
		case models.Found:
			s.logger.Debug("report found by hash", "sha256", digest)
			return o, nil
		case models.NotFound:
			s.info("Metadefender does not have a record of %s", digest)
		default:
			return nil, fmt.Errorf("unexpected lookup outcome %T", outcome)
		}
	}

	if options.Confirm != nil {
		upload, err := options.Confirm(path, digest)
		if err != nil {
			return nil, err
		}
		if !upload {
			return nil, ErrUploadDeclined
		}
	}

	s.info("Uploading %s to Metadefender cloud", path)
	submission, err := s.client.UploadFile(ctx, path)
	if err != nil {
		return nil, err
	}

	s.info("%s added to the scan queue", digest)
	s.info("data_id = %s", submission.DataId)
	s.info("Polling metadefender cloud for scan results")

	outcome, err := s.poller.Poll(ctx, submission.DataId)
	if err != nil {
		return nil, err
	}

	switch o := outcome.(type) {
	case models.Found, models.Timeout:
		return o, nil
	default:
		return nil, fmt.Errorf("unexpected poll outcome %T", outcome)
	}
}

// LookupDigest returns the report for a digest without uploading anything.
func (s *Scanner) LookupDigest(ctx context.Context, digest string) (models.Outcome, error) {
	return s.client.LookupHash(ctx, digest)
}

func (s *Scanner) info(format string, a ...interface{}) {
	fmt.Fprintf(s.out, "%s %s\n", color.BlueString("INFO:"), fmt.Sprintf(format, a...))
}
