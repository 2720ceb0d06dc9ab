// Package main is the main entrypoint to the lvm application
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/tanema/lvm/src/chunk"
	"github.com/tanema/lvm/src/conf"
	"github.com/tanema/lvm/src/runtime"
)

var (
	listOpcodes  bool
	loadOnly     bool
	showVersion  bool
	debugMode    bool
	showStats    bool
	traceExec    bool
	configPath   string
	snapshotPath string
)

func init() {
	flag.BoolVar(&listOpcodes, "l", false, "list opcodes")
	flag.BoolVar(&loadOnly, "p", false, "load only")
	flag.BoolVar(&showVersion, "v", false, "show version information")
	flag.BoolVar(&debugMode, "d", false, "step through the chunk in the debugger")
	flag.BoolVar(&showStats, "stats", false, "print execution statistics")
	flag.BoolVar(&traceExec, "trace", false, "log every executed instruction")
	flag.StringVar(&configPath, "c", "", "toml configuration file")
	flag.StringVar(&snapshotPath, "o", "", "write a snapshot of the chunk to file")
}

func main() {
	if os.Getenv("LVM_PROFILE") != "" {
		defer runProfiling(os.Getenv("LVM_PROFILE"))()
	}
	flag.Usage = printUsage
	flag.Parse()

	cfg := conf.Default()
	if configPath != "" {
		var err error
		cfg, err = conf.Load(configPath)
		checkErr(err)
	}
	if traceExec {
		cfg.Log.Trace = true
		cfg.Log.Verbosity = max(cfg.Log.Verbosity, 2)
	}
	var logPath *string
	if cfg.Log.File != "" {
		logPath = &cfg.Log.File
	}
	commonlog.Configure(cfg.Log.Verbosity, logPath)

	if showVersion {
		printVersion()
	}

	args := flag.Args()
	var proto *chunk.Prototype
	var err error
	switch {
	case len(args) > 0:
		proto, err = chunk.LoadFile(args[0])
	case !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()):
		var data []byte
		data, err = io.ReadAll(os.Stdin)
		checkErr(err)
		proto, err = chunk.Load(bytes.NewReader(data))
	case showVersion:
		return
	default:
		printUsage()
		os.Exit(1)
	}
	checkErr(err)

	if listOpcodes {
		fmt.Fprintln(os.Stderr, proto.String())
	}
	if snapshotPath != "" {
		data, err := chunk.MarshalSnapshot(proto)
		checkErr(err)
		checkErr(os.WriteFile(snapshotPath, data, 0o644))
	}
	if loadOnly {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	vm := runtime.New(ctx, cfg)
	checkErr(vm.OpenLibs())
	if len(args) > 0 {
		_, err = vm.SetArgs(os.Args, len(os.Args)-len(args))
		checkErr(err)
	}

	if debugMode {
		_, err = vm.Debug(proto)
	} else {
		_, err = vm.Eval(proto)
	}
	if showStats {
		printStats(vm.Stats())
	}
	checkErr(err)
}

func printVersion() {
	fmt.Fprintf(os.Stderr, "%v\n", conf.FullVersion())
}

func printUsage() {
	printVersion()
	fmt.Fprint(os.Stderr, "\nUsage: lvm [options] [chunk [args]]\n")
	flag.PrintDefaults()
}

func printStats(stats runtime.Stats) {
	fmt.Fprintf(os.Stderr, "instructions: %v\n", humanize.Comma(int64(stats.Instructions)))
	fmt.Fprintf(os.Stderr, "calls:        %v\n", humanize.Comma(int64(stats.Calls)))
	fmt.Fprintf(os.Stderr, "max depth:    %v\n", stats.MaxDepth)
}

func checkErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runProfiling(filename string) func() {
	f, err := os.Create(filename)
	checkErr(err)
	checkErr(pprof.StartCPUProfile(f))
	return pprof.StopCPUProfile
}
