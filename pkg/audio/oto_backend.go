package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2/storage"
	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"

	"github.com/borgmon/alarm-clock/pkg/models"
)

// Global audio context singleton. oto allows one context per process.
var (
	globalAudioCtx     *oto.Context
	globalAudioFormat  wavFormat
	globalAudioCtxOnce sync.Once
	globalAudioCtxErr  error
)

// initAudioContext initializes the global audio context once
func initAudioContext(format wavFormat, logger *zap.SugaredLogger) error {
	globalAudioCtxOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			globalAudioCtxErr = err
			logger.Errorf("Failed to initialize audio context: %v", err)
			return
		}

		// Wait for the hardware audio devices to be ready
		<-readyChan

		globalAudioCtx = ctx
		globalAudioFormat = format
		logger.Infof("Audio context initialized (%d Hz, %d ch)", format.SampleRate, format.Channels)
	})
	return globalAudioCtxErr
}

// OtoBackend decodes WAV files and plays them through oto.
type OtoBackend struct {
	assets fs.FS
	logger *zap.SugaredLogger

	mu      sync.Mutex
	ready   bool
	decoded map[string][]byte // preloaded built-in PCM by asset path
}

// NewOtoBackend creates a backend reading built-in sounds from assets.
func NewOtoBackend(assets fs.FS, logger *zap.SugaredLogger) *OtoBackend {
	return &OtoBackend{
		assets:  assets,
		logger:  logger,
		decoded: make(map[string][]byte),
	}
}

// Init opens the audio context using the built-in sounds' format and
// preloads them.
func (b *OtoBackend) Init() error {
	b.mu.Lock()
	ready := b.ready
	b.mu.Unlock()
	if ready {
		return nil
	}

	var first *wavFormat
	for _, s := range models.BuiltinSounds {
		format, pcm, err := b.decodeAsset(s.Asset)
		if err != nil {
			return err
		}
		if first == nil {
			first = format
		}
		b.mu.Lock()
		b.decoded[s.Asset] = pcm
		b.mu.Unlock()
	}
	if first == nil {
		return errors.New("no built-in sounds")
	}
	if err := initAudioContext(*first, b.logger); err != nil {
		return err
	}

	b.mu.Lock()
	b.ready = true
	b.mu.Unlock()
	return nil
}

func (b *OtoBackend) decodeAsset(path string) (*wavFormat, []byte, error) {
	raw, err := fs.ReadFile(b.assets, path)
	if err != nil {
		return nil, nil, err
	}
	return parseWAV(raw)
}

// Load reads and decodes source.
func (b *OtoBackend) Load(source Source) (Handle, error) {
	if err := b.Init(); err != nil {
		return nil, err
	}

	var pcm []byte
	if source.Asset != "" {
		b.mu.Lock()
		pcm = b.decoded[source.Asset]
		b.mu.Unlock()
		if pcm == nil {
			return nil, fmt.Errorf("unknown asset %q", source.Asset)
		}
	} else {
		raw, err := readURI(source.URI)
		if err != nil {
			return nil, err
		}
		format, data, err := parseWAV(raw)
		if err != nil {
			return nil, err
		}
		if format.SampleRate != globalAudioFormat.SampleRate {
			b.logger.Warnf("Sound %s is %d Hz, output is %d Hz; pitch will be off",
				source, format.SampleRate, globalAudioFormat.SampleRate)
		}
		pcm = toChannels(data, format.Channels, globalAudioFormat.Channels)
	}

	return &otoHandle{
		ctx:    globalAudioCtx,
		pcm:    pcm,
		volume: 1.0,
		logger: b.logger,
	}, nil
}

// Close is a no-op: the oto context lives for the whole process.
func (b *OtoBackend) Close() error {
	return nil
}

func readURI(uri string) ([]byte, error) {
	return os.ReadFile(uriPath(uri))
}

// uriPath turns file:// URIs into paths and leaves plain paths alone.
// Custom sounds are stored as fyne builds file URIs, unescaped, so they
// are parsed back with fyne rather than net/url.
func uriPath(uri string) string {
	if !strings.HasPrefix(strings.ToLower(uri), "file:") {
		return uri
	}
	u, err := storage.ParseURI(uri)
	if err != nil {
		return uri
	}
	return u.Path()
}

// otoHandle loops a decoded sound by re-creating the oto player for every
// pass, as oto players cannot rewind a plain reader.
type otoHandle struct {
	ctx    *oto.Context
	logger *zap.SugaredLogger

	mu       sync.Mutex
	pcm      []byte
	player   *oto.Player
	volume   float64
	looping  bool
	stopChan chan struct{}
	onStatus func(Status)
}

func (h *otoHandle) Play(loop bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pcm == nil {
		return errors.New("sound unloaded")
	}
	if h.stopChan != nil {
		return nil
	}
	h.looping = loop
	h.stopChan = make(chan struct{})
	go h.playLoop(h.stopChan)
	return nil
}

func (h *otoHandle) Replay() error {
	h.mu.Lock()
	if h.stopChan != nil {
		close(h.stopChan)
		h.stopChan = nil
	}
	loop := h.looping
	h.mu.Unlock()
	return h.Play(loop)
}

func (h *otoHandle) playLoop(stop chan struct{}) {
	for {
		h.mu.Lock()
		pcm := h.pcm
		if pcm == nil {
			h.mu.Unlock()
			return
		}
		player := h.ctx.NewPlayer(bytes.NewReader(pcm))
		player.SetVolume(h.volume)
		h.player = player
		h.mu.Unlock()

		// Play starts playing the sound and returns without waiting
		player.Play()
		h.report(Status{Loaded: true, Playing: true, Looping: h.isLooping()})

		// Wait for the sound to finish playing or stop signal
		for player.IsPlaying() {
			select {
			case <-stop:
				player.Pause()
				player.Close()
				return
			case <-time.After(10 * time.Millisecond):
			}
		}

		if err := player.Close(); err != nil {
			h.logger.Warnf("Failed to close audio player: %v", err)
		}

		select {
		case <-stop:
			return
		default:
		}

		if !h.isLooping() {
			h.report(Status{Loaded: true, DidJustFinish: true})
			return
		}
	}
}

func (h *otoHandle) isLooping() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.looping
}

func (h *otoHandle) report(st Status) {
	h.mu.Lock()
	cb := h.onStatus
	h.mu.Unlock()
	if cb != nil {
		cb(st)
	}
}

func (h *otoHandle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopChan != nil {
		close(h.stopChan)
		h.stopChan = nil
	}
	if h.player != nil {
		h.player.Pause()
	}
	return nil
}

func (h *otoHandle) Unload() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pcm = nil
	h.player = nil
	h.onStatus = nil
	return nil
}

func (h *otoHandle) SetVolume(level float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volume = models.ClampVolume(level)
	if h.player != nil {
		h.player.SetVolume(h.volume)
	}
	return nil
}

func (h *otoHandle) OnPlaybackStatus(fn func(Status)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStatus = fn
}
