// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config loads the miner's configuration from command-line
// flags and an optional config file, following the same two-pass
// go-flags idiom used throughout the btcsuite/Decred family (parse
// flags once to find --configfile, parse the file, then re-parse flags
// so the command line always wins).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flags "github.com/jessevdk/go-flags"

	"github.com/signum-network/signum-miner-go/internal/mlog"
)

const (
	defaultConfigFilename   = "signum-miner.conf"
	defaultLogFilename      = "signum-miner.log"
	defaultLogLevel         = "info"
	defaultGetMiningInfoMs  = 3000
	defaultCapacityCheckSec = 180
	defaultIOBufferSize     = 4 * 1024 * 1024
	defaultTimeoutMs        = 5000
	defaultTargetDeadline   = ^uint64(0)
	defaultHDDWakeupAfter   = 240
)

// Config is the fully-resolved, validated set of knobs every component
// of the miner reads from. It mirrors spec.md §6 one-for-one.
type Config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file" no-ini:"true"`

	PlotDirs           []string          `long:"plot-dir" description:"Directory containing plot files; may be repeated"`
	HDDUseDirectIO     bool              `long:"hdd-use-direct-io" description:"Use direct/unbuffered I/O for plot reads"`
	HDDReaderThreads   int               `long:"hdd-reader-thread-count" default:"0" description:"Accepted but not used: the reader always runs one goroutine per drive"`
	HDDWakeupAfterSecs int64             `long:"hdd-wakeup-after" default:"240" description:"Seconds of idle HDD time before a touch-read wakeup; 0 disables"`
	CPUThreads         int               `long:"cpu-threads" default:"0" description:"Hashing worker threads; 0 = GOMAXPROCS"`
	CPUWorkerTasks     int               `long:"cpu-worker-task-count" default:"4" description:"Buffers added to cpu-threads when sizing the buffer pool"`
	CPUThreadPinning   bool              `long:"cpu-thread-pinning" description:"Pin reader threads to CPU cores"`
	IOBufferSize       int               `long:"io-buffer-size" default:"4194304" description:"Bytes per reader chunk buffer"`
	URL                string            `long:"url" description:"Pool/wallet base URI" required:"true"`
	TimeoutMs          int64             `long:"timeout" default:"5000" description:"HTTP timeout in milliseconds"`
	SendProxyDetails   bool              `long:"send-proxy-details" description:"Send X-Capacity/X-Miner/X-Minername headers"`
	AdditionalHeaders  map[string]string `long:"additional-header" description:"Extra header to send as key=value; may be repeated"`
	SecretPhrases      map[string]string `long:"secret-phrase" description:"accountId=secretPhrase for solo mining; may be repeated"`
	TargetDeadlines    map[string]string `long:"account-target-deadline" description:"accountId=targetDeadline override; may be repeated"`
	TargetDeadline     uint64            `long:"target-deadline" default:"18446744073709551615" description:"Global target deadline cap in seconds"`
	GetMiningInfoMs    int64             `long:"get-mining-info-interval" default:"3000" description:"Mining info poll interval in milliseconds"`
	CapacityCheckSecs  int64             `long:"capacity-check-interval" default:"180" description:"Capacity rescan interval in seconds"`
	SubmitOnlyBest     bool              `long:"submit-only-best" description:"Only submit the single best nonce per round"`
	BenchmarkCPU       bool              `long:"benchmark-cpu" description:"Discard all reads after they arrive (isolate hashing throughput)"`
	BenchmarkIO        bool              `long:"benchmark-io" description:"Discard all reads before hashing (isolate I/O throughput)"`
	StatusAddr         string            `long:"status-addr" description:"Optional address to serve a read-only status endpoint on, e.g. 127.0.0.1:8080"`

	LogLevel   string `long:"log-level" default:"info" description:"Logging level: trace, debug, info, warn, error, critical"`
	LogFile    string `long:"log-file" description:"Path to the rotated log file"`
	LogDir     string `long:"log-dir" description:"Directory holding the log file (defaults to the current directory)"`
	ShowOpenCL bool   `long:"opencl" description:"Print OpenCL platform/device info and exit"`

	AccountIDToSecretPhrase map[uint64]string `no-flag:"true"`
	AccountIDToTargetDL     map[uint64]uint64 `no-flag:"true"`
}

// defaultConfig returns a Config populated with every struct-tag
// default, used before flags/ini overlay it.
func defaultConfig() Config {
	return Config{
		HDDWakeupAfterSecs: defaultHDDWakeupAfter,
		CPUWorkerTasks:     4,
		IOBufferSize:       defaultIOBufferSize,
		TimeoutMs:          defaultTimeoutMs,
		TargetDeadline:     defaultTargetDeadline,
		GetMiningInfoMs:    defaultGetMiningInfoMs,
		CapacityCheckSecs:  defaultCapacityCheckSec,
		LogLevel:           defaultLogLevel,
	}
}

// Load parses the command line and an optional config file and
// returns a validated Config. It never calls os.Exit: startup-fatal
// misconfiguration is returned as an error so the caller (cmd/signum-miner)
// controls the process exit code, per spec.md §6 "Exit codes".
func Load(args []string) (*Config, error) {
	preCfg := defaultConfig()
	preParser := flags.NewParser(&preCfg, flags.Default)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	configFile := preCfg.ConfigFile
	if configFile == "" {
		configFile = defaultConfigFilename
	}
	if _, err := os.Stat(configFile); err == nil {
		iniParser := flags.NewParser(&cfg, flags.Default)
		if err := flags.NewIniParser(iniParser).ParseFile(configFile); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.LogFile == "" {
		dir := cfg.LogDir
		if dir == "" {
			dir = "."
		}
		cfg.LogFile = filepath.Join(dir, defaultLogFilename)
	}

	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize resolves maps keyed by string-encoded account ids (go-flags
// cannot key a map by uint64 directly) into their numeric form and
// applies the floors spec.md §4.6 requires.
func normalize(cfg *Config) error {
	if len(cfg.PlotDirs) == 0 {
		return fmt.Errorf("at least one --plot-dir is required")
	}

	cfg.AccountIDToSecretPhrase = make(map[uint64]string, len(cfg.SecretPhrases))
	for k, v := range cfg.SecretPhrases {
		id, err := parseAccountID(k)
		if err != nil {
			return fmt.Errorf("invalid --secret-phrase key %q: %w", k, err)
		}
		cfg.AccountIDToSecretPhrase[id] = v
	}

	cfg.AccountIDToTargetDL = make(map[uint64]uint64, len(cfg.TargetDeadlines))
	for k, v := range cfg.TargetDeadlines {
		id, err := parseAccountID(k)
		if err != nil {
			return fmt.Errorf("invalid --account-target-deadline key %q: %w", k, err)
		}
		var dl uint64
		if _, err := fmt.Sscanf(v, "%d", &dl); err != nil {
			return fmt.Errorf("invalid --account-target-deadline value %q: %w", v, err)
		}
		cfg.AccountIDToTargetDL[id] = dl
	}

	// Floor the mining-info poll interval at 1000ms to protect pool
	// servers, per spec.md §4.6.
	if cfg.GetMiningInfoMs < 1000 {
		cfg.GetMiningInfoMs = 1000
	}
	if cfg.CPUThreads <= 0 {
		cfg.CPUThreads = 0 // resolved to GOMAXPROCS by the caller
	}
	if cfg.IOBufferSize <= 0 {
		cfg.IOBufferSize = defaultIOBufferSize
	}
	// Round io_buffer_size down to a multiple of 64, per the Buffer
	// invariant in spec.md §3.
	cfg.IOBufferSize -= cfg.IOBufferSize % 64

	return nil
}

func parseAccountID(s string) (uint64, error) {
	var id uint64
	s = strings.TrimSpace(s)
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil {
		return 0, err
	}
	return id, nil
}

// ApplyLogging wires the config's requested log level and log file
// into the mlog package. Call once, right after Load succeeds.
func ApplyLogging(cfg *Config, maxRolls int) error {
	if err := mlog.InitLogRotator(cfg.LogFile, maxRolls); err != nil {
		return err
	}
	mlog.SetLogLevels(cfg.LogLevel)
	return nil
}
