package main

import (
	"math"
	"os"
	"strconv"
)

// tinylfu spends memory per entry whatever the chunk size
const maxCacheEntries = 4096

// cacheEntries sizes the chunk cache from the XPKCACHE environment variable
func cacheEntries(chunkSize int) int {
	limit := 64 * 1024 * 1024 // fall back on 64MiB
	if e := os.Getenv("XPKCACHE"); e != "" {
		f, err := strconv.ParseFloat(e, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			panic("malformed XPKCACHE environment variable, should be a number of megabytes: " + e)
		}
		limit = int(f * 1024 * 1024)
	}
	return min(max(1, limit/max(chunkSize, 1)), maxCacheEntries)
}
