// cmd/tracknet/config.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmp/tracknet/aviation"
	"github.com/mmp/tracknet/log"
	"github.com/mmp/tracknet/server"
	"github.com/mmp/tracknet/tracks"
	"github.com/mmp/tracknet/util"
)

const currentConfigVersion = 2

type Config struct {
	Version int `json:"version"`

	NavDataFile string                   `json:"nav_data,omitempty"`
	SearchOpt   aviation.WptSearchOption `json:"search"`

	// Where each track type's message is downloaded from; types without
	// an entry can only be imported.
	Providers map[tracks.TrackType]ProviderConfig `json:"providers,omitempty"`
	// Track types that are added to the graph once their message is
	// available.
	Enabled map[tracks.TrackType]bool `json:"enabled"`

	CacheMaxBytes int64 `json:"cache_max_bytes"`
	ServerPort    int   `json:"server_port"`
}

// ProviderConfig describes a track message source. Kind is one of "http",
// "gcs", "s3", or "file"; the other fields used depend on it.
type ProviderConfig struct {
	Kind string `json:"kind"`

	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`

	Bucket          string `json:"bucket,omitempty"`
	Object          string `json:"object,omitempty"` // GCS object or S3 key
	CredentialsFile string `json:"credentials_file,omitempty"`
	Region          string `json:"region,omitempty"`
	Endpoint        string `json:"endpoint,omitempty"`
	AccessKey       string `json:"access_key,omitempty"`
	SecretKey       string `json:"secret_key,omitempty"`

	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	// If set, downloaded messages are cached and the cached one is used
	// when a download fails, as long as it's no older than
	// CacheMaxAgeHours (if non-zero).
	Cache            bool `json:"cache,omitempty"`
	CacheMaxAgeHours int  `json:"cache_max_age_hours,omitempty"`
}

func getDefaultConfig() *Config {
	return &Config{
		Version:   currentConfigVersion,
		SearchOpt: aviation.DefaultWptSearchOption(),
		Enabled: map[tracks.TrackType]bool{
			tracks.Nats:   true,
			tracks.Pacots: true,
			tracks.Ausots: true,
		},
		CacheMaxBytes: 64 << 20,
		ServerPort:    server.DefaultPort,
	}
}

func configFilePath(lg *log.Logger) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		lg.Errorf("Unable to find user config dir: %v", err)
		dir = "."
	}

	dir = filepath.Join(dir, "TrackNet")
	err = os.MkdirAll(dir, 0o700)
	if err != nil {
		lg.Errorf("%s: unable to make directory for config file: %v", dir, err)
	}

	return filepath.Join(dir, "config.json")
}

func (c *Config) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(c)
}

func (c *Config) Save(lg *log.Logger) error {
	lg.Infof("Saving config to: %s", configFilePath(lg))
	f, err := os.Create(configFilePath(lg))
	if err != nil {
		return err
	}
	defer f.Close()

	return c.Encode(f)
}

// LoadOrMakeDefaultConfig loads the user's config file; if there isn't
// one, or it can't be read, the default configuration is returned.
func LoadOrMakeDefaultConfig(lg *log.Logger) (*Config, error) {
	fn := configFilePath(lg)
	lg.Infof("Loading config from: %s", fn)

	contents, err := os.ReadFile(fn)
	if err != nil {
		if os.IsNotExist(err) {
			return getDefaultConfig(), nil
		}
		return getDefaultConfig(), err
	}
	return decodeConfig(contents)
}

func decodeConfig(contents []byte) (*Config, error) {
	var e util.ErrorLogger
	util.CheckJSON[Config](contents, &e)
	if e.HaveErrors() {
		return getDefaultConfig(), e.Err()
	}

	config := getDefaultConfig()
	if err := util.UnmarshalJSONBytes(contents, config); err != nil {
		return getDefaultConfig(), err
	}

	if config.Version < 2 {
		// The search options were added in version 2.
		config.SearchOpt = aviation.DefaultWptSearchOption()
	}
	config.Version = currentConfigVersion

	for t, pc := range config.Providers {
		if err := pc.validate(); err != nil {
			e.Push(t.String())
			e.Error(err)
			e.Pop()
		}
	}
	if e.HaveErrors() {
		return config, e.Err()
	}
	return config, nil
}

func (pc ProviderConfig) validate() error {
	switch strings.ToLower(pc.Kind) {
	case "http":
		if pc.URL == "" {
			return fmt.Errorf("\"url\" must be specified")
		}
	case "file":
		if pc.Filename == "" {
			return fmt.Errorf("\"filename\" must be specified")
		}
	case "gcs", "s3":
		if pc.Bucket == "" || pc.Object == "" {
			return fmt.Errorf("\"bucket\" and \"object\" must be specified")
		}
	default:
		return fmt.Errorf("%q: unknown provider kind", pc.Kind)
	}
	return nil
}

// Provider returns the MessageProvider described by pc for the given
// track type.
func (pc ProviderConfig) Provider(t tracks.TrackType, lg *log.Logger) (tracks.MessageProvider, error) {
	if err := pc.validate(); err != nil {
		return nil, err
	}
	timeout := time.Duration(pc.TimeoutSeconds) * time.Second

	var p tracks.MessageProvider
	switch strings.ToLower(pc.Kind) {
	case "http":
		p = tracks.HTTPProvider{Type: t, URL: pc.URL, Timeout: timeout}
	case "file":
		p = tracks.FileProvider{Type: t, Filename: pc.Filename}
	case "gcs":
		gp := tracks.GCSProvider{Type: t, Bucket: pc.Bucket, Object: pc.Object, Timeout: timeout}
		if pc.CredentialsFile != "" {
			b, err := os.ReadFile(pc.CredentialsFile)
			if err != nil {
				return nil, err
			}
			gp.CredentialsJSON = string(b)
		}
		p = gp
	case "s3":
		p = tracks.S3Provider{
			Type:      t,
			Bucket:    pc.Bucket,
			Key:       pc.Object,
			Region:    pc.Region,
			Endpoint:  pc.Endpoint,
			AccessKey: pc.AccessKey,
			SecretKey: pc.SecretKey,
		}
	}

	if pc.Cache {
		p = tracks.CachingProvider{
			Provider: p,
			Type:     t,
			Fallback: true,
			MaxAge:   time.Duration(pc.CacheMaxAgeHours) * time.Hour,
			Logger:   lg,
		}
	}
	return p, nil
}

// Downloaders returns the providers for all of the configured track
// types; misconfigured ones are logged and skipped.
func (c *Config) Downloaders(lg *log.Logger) map[tracks.TrackType]tracks.MessageProvider {
	d := make(map[tracks.TrackType]tracks.MessageProvider)
	for t, pc := range c.Providers {
		if p, err := pc.Provider(t, lg); err != nil {
			lg.Errorf("%s: %v", t, err)
		} else {
			d[t] = p
		}
	}
	return d
}
