// Command bench runs a synthetic write-heavy TTL workload against the cache
// engine and exposes optional pprof and admin/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/ttlcache/cache"
	"github.com/IvanBrykalov/ttlcache/internal/admin"
	pmet "github.com/IvanBrykalov/ttlcache/metrics/prom"
	"github.com/IvanBrykalov/ttlcache/pressure"
)

type payload struct {
	Key  string
	Data []byte
}

func main() {
	// ---- Flags ----
	var (
		configPath = flag.String("config", "", "YAML engine config (empty = defaults)")
		pressureBy = flag.String("pressure", "gc", "pressure signal: gc | none")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 20, "read percentage [0..100]")

		keys    = flag.Int("keys", 4_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		ttlMin  = flag.Duration("ttl_min", 500*time.Millisecond, "minimum entry ttl")
		ttlMax  = flag.Duration("ttl_max", 5*time.Second, "maximum entry ttl")
		valSize = flag.Int("value_size", 64, "payload bytes per entry")

		pprofAddr = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		adminAddr = flag.String("http", ":8080", "serve admin API and Prometheus metrics at addr; empty = disabled")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// ---- Engine config ----
	cfg := cache.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = cache.LoadConfig(*configPath); err != nil {
			log.Error("load config", slog.Any("err", err))
			os.Exit(1)
		}
	}
	cfg.Logger = log
	cfg.Metrics = pmet.New(nil, "ttlcache", "bench", nil)

	var gcn *pressure.GCNotifier
	switch *pressureBy {
	case "gc":
		gcn = pressure.NewGCNotifier(cfg.PressureCooldown)
		cfg.Pressure = gcn
	case "none":
	default:
		log.Error("unknown pressure signal", slog.String("pressure", *pressureBy))
		os.Exit(2)
	}

	e := cache.New(cfg)
	defer e.Close()
	c := cache.For[payload](e)

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Info("pprof: serving", slog.String("addr", *pprofAddr))
			log.Error("pprof stopped", slog.Any("err", http.ListenAndServe(*pprofAddr, nil)))
		}()
	}

	// ---- Admin API + metrics ----
	if *adminAddr != "" {
		go func() {
			log.Info("admin: serving", slog.String("addr", *adminAddr))
			if err := admin.Serve(ctx, *adminAddr, admin.NewRouter(e, nil)); err != nil && err != http.ErrServerClosed {
				log.Error("admin stopped", slog.Any("err", err))
			}
		}()
	}

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	ttlSpan := int64(*ttlMax - *ttlMin)
	if ttlSpan <= 0 {
		ttlSpan = 1
	}
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var reads, writes, hits, misses, total uint64
	runCtx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			for {
				select {
				case <-runCtx.Done():
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				k := "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
				id := cache.KeyID(k)
				if int(localR.Int31n(100)) < readPctVal {
					atomic.AddUint64(&reads, 1)
					if _, ok := c.GetFresh(id); ok {
						atomic.AddUint64(&hits, 1)
					} else {
						atomic.AddUint64(&misses, 1)
					}
				} else {
					atomic.AddUint64(&writes, 1)
					ttl := *ttlMin + time.Duration(localR.Int63n(ttlSpan))
					c.Set(id, payload{Key: k, Data: make([]byte, *valSize)}, ttl)
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	readsN := atomic.LoadUint64(&reads)
	writesN := atomic.LoadUint64(&writes)
	hitsN := atomic.LoadUint64(&hits)
	missesN := atomic.LoadUint64(&misses)

	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	fmt.Printf("workers=%d keys=%d ttl=[%v,%v] dur=%v seed=%d\n",
		workersN, *keys, *ttlMin, *ttlMax, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writesN)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hitsN, missesN, hitRate)
	fmt.Printf("Len()=%d  pending-evictions=%d  collections=%d\n", c.Len(), e.Evictions(), e.Collections())
	fmt.Printf("heap-inuse=%dMiB  gc-cycles=%d\n", ms.HeapInuse>>20, ms.NumGC)
	if gcn != nil {
		fmt.Printf("pressure: gc-cycles=%d signals=%d\n", gcn.Cycles(), gcn.Emitted())
	}
}
