// util/util_test.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/mmp/tracknet/log"
)

func TestCacheRoundTrip(t *testing.T) {
	CacheDir = t.TempDir()
	defer func() { CacheDir = "" }()

	type cached struct {
		Text string
		Time time.Time
	}
	in := cached{Text: "A 57/20 58/30 59/40", Time: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	if err := CacheStoreObject("tracks/NATs.msgpack.zst", in); err != nil {
		t.Fatalf("store: %v", err)
	}

	var out cached
	if _, err := CacheRetrieveObject("tracks/NATs.msgpack.zst", &out); err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if out.Text != in.Text || !out.Time.Equal(in.Time) {
		t.Errorf("got %+v, expected %+v", out, in)
	}

	if _, err := CacheRetrieveObject("tracks/missing", &out); err == nil {
		t.Errorf("expected error retrieving missing object")
	}

	if err := CacheCullObjects(0); err != nil {
		t.Errorf("cull: %v", err)
	}
	if _, err := CacheRetrieveObject("tracks/NATs.msgpack.zst", &out); err == nil {
		t.Errorf("object still present after culling to zero bytes")
	}
}

func TestCompressedFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"plain.txt", "packed.txt.zst"} {
		path := filepath.Join(dir, name)
		if err := WriteCompressed(path, []byte("TRACK 1\nFLEX ROUTE : A B C\n")); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		r, err := OpenMaybeCompressed(path)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		b, err := io.ReadAll(r)
		r.Close()
		if err != nil || string(b) != "TRACK 1\nFLEX ROUTE : A B C\n" {
			t.Errorf("%s: read %q, %v", name, b, err)
		}
	}

	raw, _ := os.ReadFile(filepath.Join(dir, "packed.txt.zst"))
	if string(raw) == "TRACK 1\nFLEX ROUTE : A B C\n" {
		t.Errorf(".zst file was not compressed")
	}
}

func TestSortedMapKeys(t *testing.T) {
	keys := SortedMapKeys(map[string]int{"PACOTs": 1, "AUSOTs": 2, "NATs": 0})
	if !slices.Equal(keys, []string{"AUSOTs", "NATs", "PACOTs"}) {
		t.Errorf("got %v", keys)
	}
}

func TestLoggingMutex(t *testing.T) {
	lg := log.NewTest("error")
	var mu LoggingMutex
	n := 0
	done := make(chan struct{})
	for range 4 {
		go func() {
			for range 100 {
				mu.Lock(lg)
				n++
				mu.Unlock(lg)
			}
			done <- struct{}{}
		}()
	}
	for range 4 {
		<-done
	}
	if n != 400 {
		t.Errorf("n = %d, expected 400", n)
	}
}
