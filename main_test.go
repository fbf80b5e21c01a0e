package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
)

func TestRun(t *testing.T) {
	want := fmt.Sprintf("testdata/good/deep/q2.sqsh.xz 1 %016x\ntestdata/good/q.sqsh 1 %016x\n",
		xxhash.Sum64String("Q"), xxhash.Sum64String("Q"))

	t.Run("glob", func(t *testing.T) {
		var out bytes.Buffer
		if err := run(&out, []string{"SQSH", "1", "testdata/good/**/*.sqsh*"}); err != nil {
			t.Fatal(err)
		}
		if out.String() != want {
			t.Errorf("got\n%s\nwant\n%s", out.String(), want)
		}
	})

	t.Run("dedupe", func(t *testing.T) {
		var out bytes.Buffer
		err := run(&out, []string{"SQSH", "1", "testdata/good/**/*.sqsh*", "testdata/good/q.sqsh", "testdata/good/*"})
		if err != nil {
			t.Fatal(err)
		}
		if out.String() != want {
			t.Errorf("got\n%s\nwant\n%s", out.String(), want)
		}
	})

	t.Run("outdir", func(t *testing.T) {
		dir := t.TempDir()
		if err := run(new(bytes.Buffer), []string{"-o", dir, "SQSH", "1", "testdata/good/q.sqsh"}); err != nil {
			t.Fatal(err)
		}
		got, err := os.ReadFile(filepath.Join(dir, "q.sqsh.raw"))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "Q" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("db", func(t *testing.T) {
		dir := t.TempDir()
		for range 2 {
			var out bytes.Buffer
			if err := run(&out, []string{"-db", dir, "SQSH", "1", "testdata/good/**/*"}); err != nil {
				t.Fatal(err)
			}
			if out.String() != want {
				t.Errorf("got\n%s\nwant\n%s", out.String(), want)
			}
		}
	})

	t.Run("failure", func(t *testing.T) {
		var out bytes.Buffer
		err := run(&out, []string{"SQSH", "1", "testdata/bad/*", "testdata/good/q.sqsh"})
		if !errors.Is(err, errSomeFailed) {
			t.Errorf("got %v", err)
		}
		if out.String() != fmt.Sprintf("testdata/good/q.sqsh 1 %016x\n", xxhash.Sum64String("Q")) {
			t.Errorf("good chunk not reported: %q", out.String())
		}
	})

	for name, args := range map[string][]string{
		"format": {"ZZZZ", "1", "testdata/good/q.sqsh"},
		"size":   {"SQSH", "-1", "testdata/good/q.sqsh"},
		"args":   {"SQSH", "1"},
		"flag":   {"-nonsense", "SQSH", "1", "testdata/good/q.sqsh"},
	} {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(&out, args); err == nil || errors.Is(err, errSomeFailed) {
				t.Errorf("got %v", err)
			}
		})
	}
}

func TestReadChunk(t *testing.T) {
	for _, name := range []string{"testdata/good/q.sqsh", "testdata/good/deep/q2.sqsh.xz"} {
		got, release, err := readChunk(name)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, []byte{0, 1, 'Q'}) {
			t.Errorf("%s: got %x", name, got)
		}
		release()
	}
}

func TestCacheEntries(t *testing.T) {
	t.Setenv("XPKCACHE", "1")
	if got := cacheEntries(1024); got != 1024 {
		t.Errorf("got %d", got)
	}
	if got := cacheEntries(4 << 20); got != 1 {
		t.Errorf("got %d", got)
	}

	t.Setenv("XPKCACHE", "")
	if got := cacheEntries(65536); got != 1024 {
		t.Errorf("got %d", got)
	}
	for _, size := range []int{0, 1, 256} {
		if got := cacheEntries(size); got != maxCacheEntries {
			t.Errorf("size %d: got %d entries", size, got)
		}
	}

	t.Setenv("XPKCACHE", "lots")
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	cacheEntries(1)
}
