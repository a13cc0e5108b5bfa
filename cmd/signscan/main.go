package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ironsheep/signscan/internal/config"
	"github.com/ironsheep/signscan/internal/detection"
	"github.com/ironsheep/signscan/internal/httpapi"
	"github.com/ironsheep/signscan/internal/imaging"
	"github.com/ironsheep/signscan/internal/log"
	"github.com/ironsheep/signscan/internal/oracle"
	"github.com/ironsheep/signscan/internal/pipeline"
	"github.com/ironsheep/signscan/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// dryRunSize is the input side of the static oracle used when no model is
// configured.
const dryRunSize = 64

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("signscan %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage(os.Stdout)
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "signscan: %v\n", err)
		os.Exit(2)
	}
	// Logs go to stderr; stdout carries MCP traffic and detect reports.
	log.Init(cfg.LogLevel, cfg.LogFormat)
	log.Debug("starting", "version", Version, "built", BuildTime, "commit", GitCommit)

	cmd, args := "mcp", []string(nil)
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "mcp":
		err = runMCP(ctx, cfg)
	case "detect":
		err = runDetect(ctx, cfg, args)
	case "serve":
		err = runServe(ctx, cfg)
	default:
		fmt.Fprintf(os.Stderr, "signscan: unknown command %q\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		log.Error("signscan failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "signscan - road sign detector")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  signscan [mcp]                          MCP server over stdin/stdout (default)")
	fmt.Fprintln(w, "  signscan detect [flags] <image>         Scan one photo and print a JSON report")
	fmt.Fprintln(w, "  signscan serve                          HTTP server for the stored photo and results")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Detect flags:")
	fmt.Fprintln(w, "  --annotate <out.png>    Write the photo with the accepted tile outlined")
	fmt.Fprintln(w, "  --read-text             Run OCR over the accepted tile")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  SIGNSCAN_CONFIG=<file.yaml>     YAML config file")
	fmt.Fprintln(w, "  SIGNSCAN_MODEL=<model.tflite>   Classifier model (empty: dry run)")
	fmt.Fprintln(w, "  SIGNSCAN_LOG_LEVEL=debug        Enable debug logging")
	fmt.Fprintln(w, "  SIGNSCAN_HTTP_ADDR=:8080        Listen address for serve")
}

// buildPipeline opens the oracle and wires the detector. The returned
// closer releases the oracle.
func buildPipeline(cfg config.Config) (*pipeline.Pipeline, io.Closer, error) {
	var (
		o interface {
			detection.Oracle
			io.Closer
		}
		err error
	)
	if cfg.ModelPath != "" {
		o, err = oracle.Open(cfg.ModelPath, oracle.Options{Threads: cfg.Threads})
	} else {
		log.Warn("no model configured, using dry-run oracle")
		o, err = oracle.NewStatic(dryRunSize, dryRunSize, make([]float32, len(cfg.ClassLabels())))
	}
	if err != nil {
		return nil, nil, err
	}

	det, err := detection.NewDetector(cfg.Detector, o)
	if err != nil {
		o.Close()
		return nil, nil, err
	}
	frames := imaging.NewFrameCache(cfg.Frame)
	return pipeline.New(det, frames, cfg.ClassLabels(), cfg.OCR), o, nil
}

func runMCP(ctx context.Context, cfg config.Config) error {
	p, closer, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	return server.New(p, Version).Run(ctx)
}

func runDetect(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	annotate := fs.String("annotate", "", "write an annotated copy of the photo")
	readText := fs.Bool("read-text", false, "run OCR over the accepted tile")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("detect needs exactly one image path")
	}

	p, closer, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	rep, frame, err := p.DetectFile(ctx, fs.Arg(0), pipeline.Options{ReadText: *readText})
	if err != nil {
		return err
	}

	if *annotate != "" {
		out, err := pipeline.Overlay(frame, rep)
		if err != nil {
			return err
		}
		if err := imaging.SaveImage(*annotate, out); err != nil {
			return err
		}
		log.Info("annotated photo written", "path", *annotate)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func runServe(ctx context.Context, cfg config.Config) error {
	p, closer, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	srv := httpapi.New(p, cfg.PhotoPath)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
