package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/grovedata/grove/internal/logger"
	"github.com/grovedata/grove/pkg/config"
	"github.com/grovedata/grove/pkg/proxy"
	"github.com/grovedata/grove/pkg/registry"
	"github.com/grovedata/grove/pkg/store"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Grove manages transportable handles to hierarchical data volumes.

Usage:

  grove [flags] <command> [arguments]

Commands:

  init [-force]            Write a commented sample config file
  ls <volume> [node]       List a group's entries or describe a dataset
  attrs <volume> <node>    Print a node's attributes
  seed <volume>            (Re)create a small demo tree in the volume
  serve-metrics            Serve Prometheus metrics over HTTP

Flags:

`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	metricsPort := flag.Int("metrics-port", 0, "Override metrics HTTP port")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	// init runs before config loading so a broken config file can be replaced
	if args[0] == "init" {
		runInit(args[1:])
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// CLI flags override file and environment
	if *logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(*logLevel)
	}
	if *metricsPort != 0 {
		cfg.Metrics.Port = *metricsPort
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx := context.Background()

	switch args[0] {
	case "ls":
		runLs(ctx, cfg, args[1:])
	case "attrs":
		runAttrs(ctx, cfg, args[1:])
	case "seed":
		runSeed(ctx, cfg, args[1:])
	case "serve-metrics":
		runServeMetrics(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", args[0])
		usage()
		os.Exit(2)
	}
}

// mustRegistry builds the metrics components and the handle registry from
// configuration, exiting on failure. The returned cleanup closes the
// registry and then its driver.
func mustRegistry(ctx context.Context, cfg *config.Config) (*registry.Registry, func()) {
	m := config.InitializeMetrics(cfg)

	reg, err := config.InitializeRegistry(ctx, cfg, m.Registry)
	if err != nil {
		log.Fatalf("Failed to initialize registry: %v", err)
	}

	cleanup := func() {
		if err := reg.Close(); err != nil {
			logger.Warn("Registry close: %v", err)
		}
		if err := reg.Driver().Close(); err != nil {
			logger.Warn("Driver close: %v", err)
		}
	}
	return reg, cleanup
}

// resolveNode walks nodePath from the volume root, one segment at a time.
func resolveNode(ctx context.Context, root *proxy.Group, nodePath string) (any, error) {
	var node any = root
	walked := ""
	for _, name := range store.SplitPath(nodePath) {
		group, ok := node.(*proxy.Group)
		if !ok {
			return nil, fmt.Errorf("%s is not a group", walked)
		}
		child, err := group.Lookup(ctx, name)
		if err != nil {
			return nil, err
		}
		node = child
		walked = store.JoinPath(walked, name)
	}
	return node, nil
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	_ = fs.Parse(args)

	path, err := config.InitConfig(*force)
	if err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
	fmt.Printf("Wrote sample config to %s\n", path)
}

func runLs(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) < 1 || len(args) > 2 {
		log.Fatalf("Usage: grove ls <volume> [node]")
	}
	volumePath := args[0]
	nodePath := ""
	if len(args) == 2 {
		nodePath = args[1]
	}

	reg, cleanup := mustRegistry(ctx, cfg)
	defer cleanup()

	file, err := proxy.Open(ctx, reg, store.Descriptor{Path: volumePath, Mode: store.ModeRead})
	if err != nil {
		log.Fatalf("Failed to open volume %s: %v", volumePath, err)
	}
	defer func() { _ = file.Close() }()

	node, err := resolveNode(ctx, file.Root(), nodePath)
	if err != nil {
		log.Fatalf("Failed to resolve %s: %v", nodePath, err)
	}

	switch n := node.(type) {
	case *proxy.Group:
		entries, err := n.Entries(ctx)
		if err != nil {
			log.Fatalf("Failed to list %s: %v", n.Path(), err)
		}
		for _, entry := range entries {
			fmt.Printf("%-8s %s\n", entry.Kind, entry.Name)
		}
	case *proxy.Dataset:
		dtype, err := n.DType(ctx)
		if err != nil {
			log.Fatalf("Failed to describe %s: %v", n.Path(), err)
		}
		shape, err := n.Shape(ctx)
		if err != nil {
			log.Fatalf("Failed to describe %s: %v", n.Path(), err)
		}
		fmt.Printf("dataset  %s  dtype=%s  shape=%v\n", n.Path(), dtype, shape)
	default:
		fmt.Printf("opaque   %s\n", nodePath)
	}
}

func runAttrs(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) != 2 {
		log.Fatalf("Usage: grove attrs <volume> <node>")
	}
	volumePath, nodePath := args[0], args[1]

	reg, cleanup := mustRegistry(ctx, cfg)
	defer cleanup()

	file, err := proxy.Open(ctx, reg, store.Descriptor{Path: volumePath, Mode: store.ModeRead})
	if err != nil {
		log.Fatalf("Failed to open volume %s: %v", volumePath, err)
	}
	defer func() { _ = file.Close() }()

	node, err := resolveNode(ctx, file.Root(), nodePath)
	if err != nil {
		log.Fatalf("Failed to resolve %s: %v", nodePath, err)
	}

	attrNode, ok := node.(interface {
		Attrs(ctx context.Context) (map[string]any, error)
	})
	if !ok {
		log.Fatalf("%s does not carry attributes", nodePath)
	}

	attrs, err := attrNode.Attrs(ctx)
	if err != nil {
		log.Fatalf("Failed to read attributes of %s: %v", nodePath, err)
	}

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%s = %v\n", name, attrs[name])
	}
}

// seedDemoTree populates a freshly truncated volume with a small dataset
// hierarchy.
func seedDemoTree(ctx context.Context, root *proxy.Group) error {
	if err := root.SetAttr(ctx, "title", "Grove demo volume"); err != nil {
		return fmt.Errorf("failed to set title: %w", err)
	}
	if err := root.SetAttr(ctx, "created", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to set created: %w", err)
	}

	samples, err := root.CreateGroup(ctx, "samples")
	if err != nil {
		return fmt.Errorf("failed to create samples group: %w", err)
	}
	if err := samples.SetAttr(ctx, "description", "Synthetic sensor readings"); err != nil {
		return fmt.Errorf("failed to set description: %w", err)
	}

	datasets := []struct {
		parent *proxy.Group
		name   string
		spec   store.DatasetSpec
		units  string
	}{
		{
			parent: samples,
			name:   "temperatures",
			spec: store.DatasetSpec{
				DType: store.DTypeFloat64,
				Shape: []int64{4},
				Data:  encodeFloat64s(291.4, 292.1, 290.8, 293.5),
			},
			units: "K",
		},
		{
			parent: samples,
			name:   "counts",
			spec: store.DatasetSpec{
				DType: store.DTypeInt32,
				Shape: []int64{6},
				Data:  encodeInt32s(3, 1, 4, 1, 5, 9),
			},
			units: "events",
		},
	}

	for _, d := range datasets {
		dataset, err := d.parent.CreateDataset(ctx, d.name, d.spec)
		if err != nil {
			return fmt.Errorf("failed to create dataset %s: %w", d.name, err)
		}
		if err := dataset.SetAttr(ctx, "units", d.units); err != nil {
			return fmt.Errorf("failed to set units on %s: %w", d.name, err)
		}
	}

	calibration, err := root.CreateGroup(ctx, "calibration")
	if err != nil {
		return fmt.Errorf("failed to create calibration group: %w", err)
	}
	if _, err := calibration.CreateDataset(ctx, "offsets", store.DatasetSpec{
		DType: store.DTypeFloat64,
		Shape: []int64{2},
		Data:  encodeFloat64s(0.25, -0.75),
	}); err != nil {
		return fmt.Errorf("failed to create offsets dataset: %w", err)
	}

	return nil
}

func runSeed(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) != 1 {
		log.Fatalf("Usage: grove seed <volume>")
	}
	volumePath := args[0]

	reg, cleanup := mustRegistry(ctx, cfg)
	defer cleanup()

	file, err := proxy.Open(ctx, reg, store.Descriptor{Path: volumePath, Mode: store.ModeCreate})
	if err != nil {
		log.Fatalf("Failed to open volume %s: %v", volumePath, err)
	}

	if err := seedDemoTree(ctx, file.Root()); err != nil {
		log.Fatalf("Failed to seed %s: %v", volumePath, err)
	}
	if err := file.Close(); err != nil {
		logger.Warn("Seed handle release: %v", err)
	}
	logger.Info("Seeded demo tree in %s", volumePath)

	// Acquiring the same descriptor twice resolves to one shared handle
	// backed by a single native open.
	readDesc := store.Descriptor{Path: volumePath, Mode: store.ModeRead}
	first, err := reg.Acquire(ctx, readDesc)
	if err != nil {
		log.Fatalf("Failed to acquire %s: %v", volumePath, err)
	}
	second, err := reg.Acquire(ctx, readDesc)
	if err != nil {
		log.Fatalf("Failed to acquire %s: %v", volumePath, err)
	}

	if first.ID() == second.ID() {
		logger.Info("Handle dedup verified: two acquires of %s share handle %s", volumePath, first.ID())
	} else {
		logger.Warn("Handle dedup failed: acquires of %s returned handles %s and %s",
			volumePath, first.ID(), second.ID())
	}
}

func runServeMetrics(cfg *config.Config) {
	// The command's whole purpose is the metrics endpoint
	cfg.Metrics.Enabled = true
	m := config.InitializeMetrics(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- m.Server.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Metrics server running on port %d. Press Ctrl+C to stop.", m.Server.Port())

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("Metrics server shutdown error: %v", err)
			os.Exit(1)
		}
		logger.Info("Metrics server stopped gracefully")
	case err := <-serverDone:
		if err != nil {
			logger.Error("Metrics server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Metrics server stopped")
	}
}

func encodeInt32s(values ...int32) []byte {
	out := make([]byte, 0, len(values)*4)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, uint32(v))
	}
	return out
}

func encodeFloat64s(values ...float64) []byte {
	out := make([]byte, 0, len(values)*8)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
	}
	return out
}
