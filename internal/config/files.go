package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/spf13/viper"
)

// NotifyUser routes notifications for one internal user id.
type NotifyUser struct {
	Name                string `mapstructure:"name" json:"name"`
	Email               string `mapstructure:"email" json:"email"`
	MattermostUserID    string `mapstructure:"mattermost_user_id" json:"mattermost_user_id"`
	MattermostChannelID string `mapstructure:"mattermost_channel_id" json:"mattermost_channel_id"`
}

// UserMapping maps internal user ids to notification routes.
// Keys are stored lower-cased.
type UserMapping struct {
	Users map[string]NotifyUser `mapstructure:"users"`
}

// Lookup finds a user by id, ignoring case.
func (m UserMapping) Lookup(id string) (NotifyUser, bool) {
	u, ok := m.Users[strings.ToLower(strings.TrimSpace(id))]
	return u, ok
}

type RotationKey struct {
	Name          string `mapstructure:"name"`
	NotifyUser    string `mapstructure:"notify_user"`
	NotifyChannel string `mapstructure:"notify_channel"`
	DateFormat    string `mapstructure:"date_format"`
}

type RotationJob struct {
	ProjectName string        `mapstructure:"project_name"`
	ProjectID   string        `mapstructure:"project_id"`
	Keys        []RotationKey `mapstructure:"keys"`
}

// RotationConfig enumerates batch rotation jobs.
type RotationConfig struct {
	Rotations []RotationJob `mapstructure:"rotations"`
}

// RotationTarget holds defaults for a single rotation target. Command-line
// flags override every field.
type RotationTarget struct {
	ProjectID     string `mapstructure:"project_id"`
	Prefix        string `mapstructure:"prefix"`
	NotifyUser    string `mapstructure:"notify_user"`
	NotifyChannel string `mapstructure:"notify_channel"`
	DateFormat    string `mapstructure:"date_format"`
}

// LoadUserMapping reads the notification user mapping. A missing file
// yields an empty mapping.
func LoadUserMapping(path string) (UserMapping, error) {
	mapping := UserMapping{Users: map[string]NotifyUser{}}
	v, err := readJSON(path)
	if errors.Is(err, os.ErrNotExist) {
		return mapping, nil
	}
	if err != nil {
		return mapping, err
	}
	if err := v.UnmarshalKey("users", &mapping.Users); err != nil {
		return mapping, apierr.Configuration(path, "invalid user mapping: %v", err)
	}
	if mapping.Users == nil {
		mapping.Users = map[string]NotifyUser{}
	}
	return mapping, nil
}

// LoadRotationConfig reads a rotation batch configuration file.
func LoadRotationConfig(path string) (RotationConfig, error) {
	var cfg RotationConfig
	v, err := readJSON(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, apierr.Configuration(path, "rotation config not found")
	}
	if err != nil {
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, apierr.Configuration(path, "invalid rotation config: %v", err)
	}
	if err := validateRotationConfig(cfg); err != nil {
		return cfg, apierr.Configuration(path, "%v", err)
	}
	return cfg, nil
}

// LoadRotationTarget reads a single-target rotation file. Unlike the batch
// config, fields may be left out for flags to fill in.
func LoadRotationTarget(path string) (RotationTarget, error) {
	var target RotationTarget
	v, err := readJSON(path)
	if errors.Is(err, os.ErrNotExist) {
		return target, apierr.Configuration(path, "rotation config not found")
	}
	if err != nil {
		return target, err
	}
	if err := v.Unmarshal(&target); err != nil {
		return target, apierr.Configuration(path, "invalid rotation config: %v", err)
	}
	return target, nil
}

func validateRotationConfig(cfg RotationConfig) error {
	if len(cfg.Rotations) == 0 {
		return errors.New("rotations cannot be empty")
	}
	for i, job := range cfg.Rotations {
		if strings.TrimSpace(job.ProjectID) == "" {
			return fmt.Errorf("rotations[%d].project_id is required", i)
		}
		for j, key := range job.Keys {
			if strings.TrimSpace(key.Name) == "" {
				return fmt.Errorf("rotations[%d].keys[%d].name is required", i, j)
			}
		}
	}
	return nil
}

func readJSON(path string) (*viper.Viper, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, os.ErrNotExist
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, apierr.Configuration(path, "read config: %v", err)
	}
	return v, nil
}
