package setupservice

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/RobsonDevCode/metascan/internal/configuration"
)

var ErrSettingsExist = errors.New("user settings already exist")

// CreateSetupFile stores the api key (and optionally a base url) where
// configuration.Load picks it up. An existing file is only replaced when
// overwrite is set.
func CreateSetupFile(path string, apiKey string, baseUrl string, overwrite bool) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("api key is required")
	}

	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("%s: %w, use --force to replace them", path, ErrSettingsExist)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error checking user settings: %w", err)
	}

	userSettings := configuration.UsersSettings{ApiKey: apiKey}
	if baseUrl != "" {
		parsedUrl, err := url.Parse(baseUrl)
		if err != nil || parsedUrl.Scheme == "" || parsedUrl.Host == "" {
			return fmt.Errorf("url seems to be in an incorrect format: %s", baseUrl)
		}
		userSettings.BaseUrl = parsedUrl.String()
	}

	jsonData, err := json.MarshalIndent(userSettings, "", "  ")
	if err != nil {
		return fmt.Errorf("error marsheling json, %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("error creating directory for %s, %w", path, err)
	}

	// the file holds a secret
	if err := os.WriteFile(path, jsonData, 0600); err != nil {
		return fmt.Errorf("error writing file at %s, %w", path, err)
	}

	return nil
}
