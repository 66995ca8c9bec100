package camera

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Device is a source of frames.
type Device interface {
	// Read returns the next frame. A failed or empty read is an error.
	Read() (image.Image, error)

	// Close releases the device.
	Close() error
}

// VideoDevice reads frames from a V4L2/UVC camera through OpenCV.
type VideoDevice struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	mu      sync.Mutex
	closed  bool
}

// Open opens the video device named by cfg.Index and requests the
// configured resolution.
func Open(cfg Config) (*VideoDevice, error) {
	vc, err := gocv.OpenVideoCapture(cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.Index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open camera %d: device not opened", cfg.Index)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))

	return &VideoDevice{
		capture: vc,
		mat:     gocv.NewMat(),
	}, nil
}

// Read grabs one frame and converts it from BGR to an RGB image.
func (d *VideoDevice) Read() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if ok := d.capture.Read(&d.mat); !ok {
		return nil, fmt.Errorf("read frame: device returned no data")
	}
	if d.mat.Empty() {
		return nil, fmt.Errorf("read frame: empty frame")
	}

	img, err := d.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

// Size reports the resolution the driver actually negotiated.
func (d *VideoDevice) Size() image.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return image.Point{}
	}
	return image.Pt(
		int(d.capture.Get(gocv.VideoCaptureFrameWidth)),
		int(d.capture.Get(gocv.VideoCaptureFrameHeight)),
	)
}

// Close releases the capture device. Safe to call more than once.
func (d *VideoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.mat.Close()
	return d.capture.Close()
}
