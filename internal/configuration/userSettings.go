package configuration

import (
	"encoding/json"
	"fmt"
	"os"
)

const UserSettingsPath = "configuration/user_setting.json"

type UsersSettings struct {
	ApiKey  string `json:"api_key"`
	BaseUrl string `json:"base_url,omitempty"`
}

func ReadUserSettings(path string) (*UsersSettings, error) {
	jsonData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read user settings: %w", err)
	}

	var userSettings UsersSettings
	if err := json.Unmarshal(jsonData, &userSettings); err != nil {
		return nil, fmt.Errorf("error unmarsheling user settings %w", err)
	}

	return &userSettings, nil
}

func (u *UsersSettings) apply(config *Config) {
	if u.ApiKey != "" {
		config.MetadefenderClientSettings.ApiKey = u.ApiKey
	}
	if u.BaseUrl != "" {
		config.MetadefenderClientSettings.BaseUrl = u.BaseUrl
	}
}
