package audio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/hammamikhairi/smartlearn/internal/logger"
)

// Source delivers captured 16-bit PCM to subscribers. Callbacks run on the
// audio thread and must not block.
type Source interface {
	Subscribe(fn func(pcm []byte)) (cancel func())
}

// Capture is one always-on microphone shared by the wake-word detector and
// the recorder.
type Capture struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	format Format
	log    *logger.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]func([]byte)
}

var _ Source = (*Capture)(nil)

// OpenCapture initialises the default capture device in f.
func OpenCapture(f Format, log *logger.Logger) (*Capture, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("audio: init context: %w", err)
	}

	c := &Capture{ctx: mctx, format: f, log: log, subs: map[int]func([]byte){}}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = uint32(f.Channels)
	cfg.SampleRate = uint32(f.SampleRate)
	cfg.Alsa.NoMMap = 1
	bytesPerFrame := malgo.SampleSizeInBytes(malgo.FormatS16) * f.Channels

	c.device, err = malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, in []byte, frames uint32) {
			n := int(frames) * bytesPerFrame
			if n == 0 || len(in) < n {
				return
			}
			c.dispatch(in[:n])
		},
	})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("audio: init capture device: %w", err)
	}

	if err := c.device.Start(); err != nil {
		c.Close()
		return nil, fmt.Errorf("audio: start capture device: %w", err)
	}

	log.Debug("audio capture started (rate=%d, channels=%d)", f.SampleRate, f.Channels)
	return c, nil
}

// Format returns the capture format.
func (c *Capture) Format() Format { return c.format }

// Subscribe registers fn for every captured buffer. The buffer is reused
// by the device; fn must copy what it keeps.
func (c *Capture) Subscribe(fn func(pcm []byte)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Capture) dispatch(pcm []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fn := range c.subs {
		fn(pcm)
	}
}

// Close stops the device and releases the audio context.
func (c *Capture) Close() {
	if c.device != nil {
		_ = c.device.Stop()
		c.device.Uninit()
		c.device = nil
	}
	if c.ctx != nil {
		_ = c.ctx.Uninit()
		c.ctx.Free()
		c.ctx = nil
	}
	c.log.Debug("audio capture closed")
}
