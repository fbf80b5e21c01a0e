// Command xpkcrunch decrunches XPK chunk files.
//
//	xpkcrunch [-db dir] [-o outdir] FORMAT SIZE PATTERN...
//
// Each file matching a pattern (** is allowed) holds one compressed chunk,
// optionally wrapped in xz. Every chunk decompresses to SIZE bytes.
// Files are decoded in name order, which matters for formats that carry state between chunks.
// For each chunk a line "name size xxhash" is printed.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/elliotnunn/xpkcrunch/internal/chunkcache"
	"github.com/elliotnunn/xpkcrunch/internal/chunkstore"
	"github.com/elliotnunn/xpkcrunch/internal/xpk"
)

const agent = "xpkcrunch"

var errSomeFailed = errors.New("some chunks failed")

func main() {
	err := run(os.Stdout, os.Args[1:])
	if err != nil {
		if !errors.Is(err, errSomeFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(w io.Writer, args []string) error {
	flags := flag.NewFlagSet(agent, flag.ContinueOnError)
	dbDir := flags.String("db", "", "keep decrunched chunks in a database in this `directory`")
	outDir := flags.String("o", "", "write decrunched chunks into this `directory`")
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "usage: %s [-db dir] [-o outdir] FORMAT SIZE PATTERN...\n", agent)
		flags.PrintDefaults()
		fmt.Fprintf(flags.Output(), "formats: %v\n", xpk.Formats())
	}
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() < 3 {
		flags.Usage()
		return errors.New("not enough arguments")
	}

	d, err := xpk.New(flags.Arg(0))
	if err != nil {
		return err
	}
	size, err := strconv.Atoi(flags.Arg(1))
	if err != nil || size < 0 {
		return fmt.Errorf("bad chunk size %q", flags.Arg(1))
	}
	names, err := expand(flags.Args()[2:])
	if err != nil {
		return err
	}

	var backing chunkcache.Backing
	if *dbDir != "" {
		store, err := chunkstore.Open(*dbDir)
		if err != nil {
			return err
		}
		defer store.Close()
		backing = store
	}
	cache := chunkcache.New(cacheEntries(size), backing)

	failed := false
	raw := make([]byte, size)
	for _, name := range names {
		if err := crunchOne(cache, d, name, raw); err != nil {
			slog.Error("chunkFailed", "file", name, "err", err)
			failed = true
			continue
		}
		fmt.Fprintf(w, "%s %d %016x\n", name, size, xxhash.Sum64(raw))
		if *outDir != "" {
			dst := filepath.Join(*outDir, filepath.Base(name)+".raw")
			if err := os.WriteFile(dst, raw, 0o644); err != nil {
				return err
			}
		}
	}

	hits, misses := cache.Stats()
	slog.Debug("cacheStats", "hits", hits, "misses", misses)
	if failed {
		return errSomeFailed
	}
	return nil
}

func crunchOne(cache *chunkcache.Cache, d *xpk.Decruncher, name string, raw []byte) error {
	chunk, release, err := readChunk(name)
	if err != nil {
		return err
	}
	defer release()
	return cache.Decompress(d, agent, chunk, raw)
}

// expand globs the patterns into a sorted list of distinct regular files
func expand(patterns []string) ([]string, error) {
	var names []string
	seen := make(map[fileKey]bool)
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pattern, err)
		}
		if len(matches) == 0 {
			slog.Warn("noMatch", "pattern", pattern)
		}
		for _, m := range matches {
			k, regular, err := identify(m)
			if err != nil {
				return nil, err
			}
			if !regular || seen[k] {
				continue
			}
			seen[k] = true
			names = append(names, m)
		}
	}
	slices.Sort(names)
	return names, nil
}
