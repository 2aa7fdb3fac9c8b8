// cmd/tracknet/config_test.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mmp/tracknet/aviation"
	"github.com/mmp/tracknet/tracks"
)

func TestDecodeConfig(t *testing.T) {
	c, err := decodeConfig([]byte(`{
    "version": 2,
    "nav_data": "nav.json.zst",
    "search": {"search_range": 30, "max_search_range": 300, "min_count": 5, "max_count": 10},
    "providers": {
        "NATs": {"kind": "http", "url": "https://example.com/nat", "cache": true, "cache_max_age_hours": 12},
        "AUSOTS": {"kind": "s3", "bucket": "tracks", "object": "ausots.txt", "region": "ap-southeast-2"}
    },
    "enabled": {"PACOTs": false}
}`))
	if err != nil {
		t.Fatalf("decodeConfig: %v", err)
	}

	if c.NavDataFile != "nav.json.zst" || c.SearchOpt.SearchRange != 30 || c.SearchOpt.MaxCount != 10 {
		t.Errorf("unexpected config %+v", c)
	}
	if !c.Enabled[tracks.Nats] || c.Enabled[tracks.Pacots] || !c.Enabled[tracks.Ausots] {
		t.Errorf("enabled = %v", c.Enabled)
	}

	d := c.Downloaders(nil)
	if len(d) != 2 {
		t.Fatalf("expected 2 downloaders, got %d", len(d))
	}
	cp, ok := d[tracks.Nats].(tracks.CachingProvider)
	if !ok {
		t.Fatalf("NATs provider is %T, expected CachingProvider", d[tracks.Nats])
	}
	if hp, ok := cp.Provider.(tracks.HTTPProvider); !ok || hp.URL != "https://example.com/nat" {
		t.Errorf("unexpected wrapped provider %+v", cp.Provider)
	}
	if cp.MaxAge != 12*time.Hour || !cp.Fallback {
		t.Errorf("unexpected caching provider %+v", cp)
	}
	if sp, ok := d[tracks.Ausots].(tracks.S3Provider); !ok || sp.Key != "ausots.txt" || sp.Region != "ap-southeast-2" {
		t.Errorf("unexpected AUSOT provider %+v", d[tracks.Ausots])
	}
}

func TestDecodeConfigErrors(t *testing.T) {
	for _, c := range []struct {
		json, err string
	}{
		{`{"nav_dta": "x"}`, "nav_dta"},
		{`{"providers": {"NATs": {"kind": "ftp"}}}`, "unknown provider kind"},
		{`{"providers": {"PACOTs": {"kind": "gcs", "bucket": "b"}}}`, "PACOTs"},
		{`{"search": 12}`, "search"},
		{`{`, "line"},
	} {
		if _, err := decodeConfig([]byte(c.json)); err == nil {
			t.Errorf("%s: expected an error", c.json)
		} else if !strings.Contains(err.Error(), c.err) {
			t.Errorf("%s: error %q doesn't mention %q", c.json, err, c.err)
		}
	}
}

func TestDefaultConfigRoundTrip(t *testing.T) {
	def := getDefaultConfig()
	def.Providers = map[tracks.TrackType]ProviderConfig{
		tracks.Pacots: {Kind: "file", Filename: "pacots.txt"},
	}

	var buf bytes.Buffer
	if err := def.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	c, err := decodeConfig(buf.Bytes())
	if err != nil {
		t.Fatalf("decoding encoded default config: %v", err)
	}
	if c.SearchOpt != aviation.DefaultWptSearchOption() || c.ServerPort != def.ServerPort {
		t.Errorf("round trip changed config: %+v", c)
	}
	if fp, ok := c.Downloaders(nil)[tracks.Pacots].(tracks.FileProvider); !ok || fp.Filename != "pacots.txt" {
		t.Errorf("unexpected provider %+v", c.Downloaders(nil)[tracks.Pacots])
	}
}

func TestOldConfigVersion(t *testing.T) {
	c, err := decodeConfig([]byte(`{"version": 1, "search": {"search_range": 1}}`))
	if err != nil {
		t.Fatal(err)
	}
	if c.SearchOpt != aviation.DefaultWptSearchOption() || c.Version != currentConfigVersion {
		t.Errorf("old config not upgraded: %+v", c)
	}
}
