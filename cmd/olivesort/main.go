// olivesort - photographs a 2x2 grid of olives, classifies each one and
// tells the sorter microcontroller which to keep.
package main

import (
	"context"
	"flag"
	stdlog "log"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-olivesort/internal/log"
	"github.com/teslashibe/go-olivesort/pkg/camera"
	"github.com/teslashibe/go-olivesort/pkg/classify"
	"github.com/teslashibe/go-olivesort/pkg/olivesort"
)

func main() {
	cfg := parseFlags()

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	log.Init(level)

	app, err := olivesort.New(cfg)
	if err != nil {
		stdlog.Fatalf("❌ Configuration error: %v", err)
	}

	if err := app.Init(); err != nil {
		stdlog.Fatalf("❌ Initialization failed: %v", err)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		stdlog.Printf("❌ Runtime error: %v", err)
	}
}

// parseFlags applies environment overrides, then flags on top.
func parseFlags() olivesort.Config {
	cfg := olivesort.DefaultConfig()
	cfg.LoadEnvConfig()

	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	model := flag.String("model", cfg.Model.ModelPath, "Model artifact (.eim executable or .onnx file)")
	backend := flag.String("backend", string(cfg.Model.Backend), "Model backend: eim, onnx, dnn")
	metadata := flag.String("metadata", "", "Metadata JSON for onnx/dnn models (default: model path with .json)")
	ortLib := flag.String("ort-lib", cfg.Model.SharedLibraryPath, "Path to libonnxruntime for the onnx backend")
	serialPort := flag.String("serial", cfg.Serial.Port, "Serial device of the sorter microcontroller")
	baud := flag.Int("baud", cfg.Serial.Baud, "Serial baud rate")
	cam := flag.Int("camera", cfg.Camera.Index, "Camera device index")
	preset := flag.String("camera-preset", "", "Camera preset (default, hd, fast)")
	warmup := flag.Int("warmup", cfg.Camera.WarmupFrames, "Frames discarded before the captured frame")
	port := flag.String("port", cfg.WebPort, "Dashboard port")
	goodLabel := flag.String("good-label", cfg.Sorter.GoodLabel, "Model label that counts as a good olive")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *preset != "" {
		if p := camera.GetPreset(*preset); p != nil {
			cfg.Camera = *p
		} else {
			stdlog.Fatalf("❌ Unknown camera preset %q (have %v)", *preset, camera.PresetNames())
		}
	}

	cfg.Debug = *debug
	cfg.Model.ModelPath = *model
	cfg.Model.Backend = classify.Backend(*backend)
	cfg.Model.MetadataPath = *metadata
	cfg.Model.SharedLibraryPath = *ortLib
	cfg.Serial.Port = *serialPort
	cfg.Serial.Baud = *baud
	cfg.Camera.Index = *cam
	if set["warmup"] || *preset == "" {
		cfg.Camera.WarmupFrames = *warmup
	}
	cfg.WebPort = *port
	cfg.Sorter.GoodLabel = *goodLabel
	return cfg
}
