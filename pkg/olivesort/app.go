package olivesort

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-olivesort/internal/log"
	"github.com/teslashibe/go-olivesort/pkg/camera"
	"github.com/teslashibe/go-olivesort/pkg/classify"
	"github.com/teslashibe/go-olivesort/pkg/serial"
	"github.com/teslashibe/go-olivesort/pkg/sorter"
	"github.com/teslashibe/go-olivesort/pkg/web"
)

// App is the sorter application. It owns the model, camera and serial
// handles for the whole process lifetime.
type App struct {
	config Config
	logger *slog.Logger

	// Hardware and model
	model    classify.Model
	device   camera.Device
	capturer *camera.Capturer
	serial   *serial.Channel

	// Pipeline
	sorter *sorter.Sorter
	worker *sorter.Worker

	webServer *web.Server

	openModel  func(classify.Config) (classify.Model, error)
	openCamera func(camera.Config) (camera.Device, error)
	serialOpts []serial.Option

	shutdownOnce sync.Once
}

// Option customises how an App reaches its hardware.
type Option func(*App)

// WithModelOpener replaces classify.Open.
func WithModelOpener(fn func(classify.Config) (classify.Model, error)) Option {
	return func(a *App) { a.openModel = fn }
}

// WithCameraOpener replaces camera.Open.
func WithCameraOpener(fn func(camera.Config) (camera.Device, error)) Option {
	return func(a *App) { a.openCamera = fn }
}

// WithSerialOptions passes options to the serial channel.
func WithSerialOptions(opts ...serial.Option) Option {
	return func(a *App) { a.serialOpts = append(a.serialOpts, opts...) }
}

// New creates the application after validating cfg.
func New(cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		config:    cfg,
		logger:    log.Component("app"),
		openModel: classify.Open,
		openCamera: func(c camera.Config) (camera.Device, error) {
			return camera.Open(c)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Init loads the model, opens the serial link and the camera, in that
// order. Any failure is fatal; whatever was already opened is released.
func (a *App) Init() error {
	fmt.Println("🫒 Olive Sorter 2x2")
	fmt.Println("==================")
	if a.config.Debug {
		fmt.Println("🐛 Debug mode enabled")
	}

	fmt.Printf("🧠 Loading model %s (%s)... ", a.config.Model.ModelPath, a.config.Model.Backend)
	model, err := a.openModel(a.config.Model)
	if err != nil {
		fmt.Println("❌")
		return fmt.Errorf("load model: %w", err)
	}
	a.model = model
	fmt.Printf("✅ labels %v\n", model.Labels())

	fmt.Printf("🔌 Opening serial %s... ", a.config.Serial.Port)
	a.serial = serial.New(a.config.Serial, a.serialOpts...)
	if err := a.serial.Open(); err != nil {
		fmt.Println("❌")
		a.release()
		return fmt.Errorf("serial: %w", err)
	}
	fmt.Println("✅")

	fmt.Printf("📷 Opening camera %d... ", a.config.Camera.Index)
	dev, err := a.openCamera(a.config.Camera)
	if err != nil {
		fmt.Println("❌")
		a.release()
		return fmt.Errorf("camera: %w", err)
	}
	a.device = dev
	a.capturer = camera.NewCapturer(dev, a.config.Camera)
	size := image.Pt(a.config.Camera.Width, a.config.Camera.Height)
	if sized, ok := dev.(interface{ Size() image.Point }); ok {
		size = sized.Size()
	}
	fmt.Printf("✅ %dx%d\n", size.X, size.Y)

	a.webServer = web.NewServer(a.config.WebPort)
	a.sorter = sorter.New(a.config.Sorter, a.capturer, a.model, a.serial, a.webServer)
	a.worker = sorter.NewWorker(a.sorter, a.onCycleDone)
	a.webServer.OnSort = a.worker.Trigger

	return nil
}

// Run serves the dashboard and processes sort triggers until ctx is
// cancelled. The worker has stopped by the time Run returns.
func (a *App) Run(ctx context.Context) error {
	if a.worker == nil {
		return fmt.Errorf("app not initialised")
	}

	if err := a.webServer.StartAsync(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}

	fmt.Printf("\n🌐 Dashboard: http://localhost:%s\n", a.config.WebPort)
	fmt.Println("   Press \"Sort Olives\" to run a cycle (Ctrl+C to exit)")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.worker.Run(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	return nil
}

// Trigger starts a cycle as if the operator pressed the button.
func (a *App) Trigger() (string, bool) {
	if a.worker == nil {
		return "", false
	}
	return a.worker.Trigger()
}

func (a *App) onCycleDone(res sorter.Result) {
	if a.webServer != nil {
		a.webServer.CycleDone(res)
	}
	if res.OK {
		fmt.Printf("🫒 %s  %v\n", res.Command, res.Labels)
	} else {
		fmt.Printf("⚠️  %s\n", res.Status)
	}
}

// Shutdown releases the camera, stops the model and closes serial, in
// that order, then stops the dashboard. Safe to call more than once and
// after a failed Init.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		fmt.Println("\n👋 Goodbye!")
		a.release()
		if a.webServer != nil {
			if err := a.webServer.Shutdown(); err != nil {
				a.logger.Debug("web shutdown", "error", err)
			}
		}
	})
}

// release closes whichever handles are open. Close errors are only
// logged.
func (a *App) release() {
	if a.device != nil {
		if err := a.device.Close(); err != nil {
			a.logger.Debug("camera close", "error", err)
		}
		a.device = nil
	}
	if a.model != nil {
		if err := a.model.Close(); err != nil {
			a.logger.Debug("model close", "error", err)
		}
		a.model = nil
	}
	if a.serial != nil {
		if err := a.serial.Close(); err != nil {
			a.logger.Debug("serial close", "error", err)
		}
		a.serial = nil
	}
}
