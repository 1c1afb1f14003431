package pollservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RobsonDevCode/metascan/internal/clients"
	"github.com/RobsonDevCode/metascan/internal/clients/models"
	"github.com/RobsonDevCode/metascan/internal/configuration"
	"github.com/sethvargo/go-retry"
)

var errScanInProgress = errors.New("scan in progress")

type PollService interface {
	Poll(ctx context.Context, dataId string) (models.Outcome, error)
}

type ScanResultGetter interface {
	GetScanResult(ctx context.Context, dataId string) (*models.ScanResult, error)
}

type Poller struct {
	client   ScanResultGetter
	settings configuration.PollSettings
	logger   *slog.Logger
}

func NewPoller(client ScanResultGetter, settings configuration.PollSettings, logger *slog.Logger) *Poller {
	return &Poller{
		client:   client,
		settings: settings,
		logger:   logger,
	}
}

// MaxAttempts is the number of status queries allowed within timeout,
// ceil(timeout/interval) and never less than one.
func MaxAttempts(timeout, interval time.Duration) int {
	if interval <= 0 || timeout <= 0 {
		return 1
	}

	attempts := int((timeout + interval - 1) / interval)
	if attempts < 1 {
		return 1
	}
	return attempts
}

// Poll queries the submission until it reports 100% progress. Running out of
// attempts is the models.Timeout outcome; a failed query ends polling with
// that error. There is no wait after the last query.
func (p *Poller) Poll(ctx context.Context, dataId string) (models.Outcome, error) {
	attempts := MaxAttempts(p.settings.Timeout, p.settings.Interval)

	var result *models.ScanResult
	queries := 0
	progress := 0

	err := retry.Do(ctx, p.backoff(attempts), func(ctx context.Context) error {
		queries++

		current, err := p.client.GetScanResult(ctx, dataId)
		if err != nil {
			return err
		}

		progress = current.ScanResults.ProgressPercentage
		p.logger.Info("polled scan progress", "data_id", dataId, "attempt", queries, "of", attempts, "progress", progress)

		if current.IsComplete() {
			result = current
			return nil
		}

		return retry.RetryableError(errScanInProgress)
	})

	switch {
	case err == nil:
		return models.Found{Result: result, Source: models.SourceUpload}, nil
	case errors.Is(err, errScanInProgress):
		return models.Timeout{DataId: dataId, Attempts: queries, After: p.settings.Timeout, Progress: progress}, nil
	case ctx.Err() != nil:
		return nil, clients.NewTimeoutError(fmt.Sprintf("polling %s canceled", dataId), err)
	default:
		return nil, err
	}
}

// backoff spaces the queries. Exponential waits are also bounded by the
// timeout, measured from the first query.
func (p *Poller) backoff(attempts int) retry.Backoff {
	var backoff retry.Backoff
	switch p.settings.Backoff {
	case configuration.BackoffExponential:
		backoff = retry.NewExponential(p.settings.Interval)
	default:
		backoff = retry.NewConstant(p.settings.Interval)
	}

	if p.settings.Jitter > 0 {
		backoff = retry.WithJitter(p.settings.Jitter, backoff)
	}

	if p.settings.Backoff == configuration.BackoffExponential {
		backoff = retry.WithMaxDuration(p.settings.Timeout, backoff)
	}

	return retry.WithMaxRetries(uint64(attempts-1), backoff)
}
