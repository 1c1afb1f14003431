package main

import (
	"io"

	"github.com/RobsonDevCode/metascan/cmd"
	cache "github.com/RobsonDevCode/metascan/internal/caching"
	client "github.com/RobsonDevCode/metascan/internal/clients"
	"github.com/RobsonDevCode/metascan/internal/configuration"
	"github.com/RobsonDevCode/metascan/internal/logging"
	scanner "github.com/RobsonDevCode/metascan/internal/scanner"
	hashservice "github.com/RobsonDevCode/metascan/internal/services/hashService"
	pollservice "github.com/RobsonDevCode/metascan/internal/services/pollService"
	scanfileservice "github.com/RobsonDevCode/metascan/internal/services/scanFileService"
)

func main() {
	cmd.SetServiceFactory(buildServices)
	cmd.Execute()
}

func buildServices(config *configuration.Config, verbose bool, out io.Writer) (*cmd.Services, error) {
	logger, logCloser := logging.New(config.LoggingSettings, verbose)

	cacheIntance := cache.Cache{}
	metadefenderClient, err := client.NewMetadefenderClient(config, &cacheIntance, logger)
	if err != nil {
		if logCloser != nil {
			logCloser.Close()
		}
		return nil, err
	}

	hasher := hashservice.NewHasher()
	poller := pollservice.NewPoller(metadefenderClient, config.PollSettings, logger)
	scanner := scanner.NewScanner(hasher, metadefenderClient, poller, out, logger)
	fileService := scanfileservice.NewFileScannerService(scanner, out)

	return &cmd.Services{
		ScanFile: fileService,
		Hasher:   hasher,
		Close: func() error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
	}, nil
}
