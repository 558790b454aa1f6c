// Package encode wraps one codec instance and one muxer as a GStreamer
// pipeline: RGB frame submission, in-band SEI metadata injection (by
// packet-level NAL prepending on the encoder's output pad; no native
// side-data path is used), and MP4/MKV/DASH muxing.
package encode

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/tigas/renderer-encoder/internal/model"
	"github.com/tigas/renderer-encoder/internal/sei"
)

func init() {
	gst.Init(nil)
}

// Encoder owns one GStreamer pipeline: an appsrc fed RGB24 buffers, a
// videoconvert/videoscale pair performing the RGB→codec pixel-format
// conversion, one encoder element, one muxer, and an output sink. Every
// acquired element is released by Flush, which Destroy also triggers.
type Encoder struct {
	log *slog.Logger

	width, height int
	fps           int
	cfg           model.EncodeConfig
	res           resolution

	pipeline *gst.Pipeline
	src      *app.Source
	encoder  *gst.Element
	sink     *gst.Element

	nextPTS int64

	mu          sync.Mutex
	pendingMeta []model.FrameMetadata

	flushed   bool
	destroyed bool
}

// New constructs an Encoder. It performs the full setup sequence
// (§4.5 steps 1–10): muxer allocation, codec resolution, element
// configuration, header write, and scaler/frame-buffer preparation.
func New(outputPath string, cfg model.EncodeConfig, width, height int, log *slog.Logger) (*Encoder, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "encoder", "output", outputPath, "run_id", cfg.RunID)

	res := resolveCodec(cfg.CodecName, cfg.Lossless)

	e := &Encoder{
		log:    log,
		width:  width,
		height: height,
		fps:    cfg.FPS,
		cfg:    cfg,
		res:    res,
	}

	if err := e.setup(outputPath); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Encoder) setup(outputPath string) error {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return &SetupError{Stage: "allocate pipeline", Err: err}
	}
	e.pipeline = pipeline

	srcElement, err := gst.NewElement("appsrc")
	if err != nil {
		return &SetupError{Stage: "create appsrc", Err: err}
	}
	srcElement.SetProperty("format", 3) // GST_FORMAT_TIME
	srcElement.SetProperty("is-live", e.cfg.LiveDash)
	srcElement.SetProperty("block", true)
	srcCaps := gst.NewCapsFromString(fmt.Sprintf(
		"video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/1", e.width, e.height, e.fps))
	srcElement.SetProperty("caps", srcCaps)
	e.src = app.SrcFromElement(srcElement)

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return &SetupError{Stage: "create videoconvert", Err: err}
	}

	scale, err := gst.NewElement("videoscale")
	if err != nil {
		return &SetupError{Stage: "create videoscale", Err: err}
	}
	scale.SetProperty("method", 2) // bicubic

	capsFilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return &SetupError{Stage: "create capsfilter", Err: err}
	}
	pixCaps := gst.NewCapsFromString(fmt.Sprintf(
		"video/x-raw,format=%s,width=%d,height=%d", e.res.pixFmt, e.width, e.height))
	capsFilter.SetProperty("caps", pixCaps)

	encoderElement, err := gst.NewElement(e.res.element)
	if err != nil {
		return &SetupError{Stage: fmt.Sprintf("create encoder %s", e.res.element), Err: err}
	}
	e.encoder = encoderElement
	e.configureEncoder(encoderElement)

	muxerName, sinkElement, err := e.buildMuxerAndSink(outputPath)
	if err != nil {
		return err
	}
	muxerElement, err := gst.NewElement(muxerName)
	if err != nil {
		return &SetupError{Stage: fmt.Sprintf("create muxer %s", muxerName), Err: err}
	}
	e.sink = sinkElement

	e.pipeline.AddMany(srcElement, convert, scale, capsFilter, encoderElement, muxerElement, sinkElement)
	if err := gst.ElementLinkMany(srcElement, convert, scale, capsFilter, encoderElement, muxerElement, sinkElement); err != nil {
		return &SetupError{Stage: "link pipeline elements", Err: err}
	}

	if e.res.kind.carriesSEI() {
		e.installSEIProbe(encoderElement)
	}

	if err := e.pipeline.SetState(gst.StatePlaying); err != nil {
		return &SetupError{Stage: "write header / start pipeline", Err: err}
	}

	e.log.Debug("encoder setup complete",
		"codec", e.res.element, "pix_fmt", e.res.pixFmt, "nvenc", e.res.nvenc,
		"carries_sei", e.res.kind.carriesSEI())
	return nil
}

func (e *Encoder) configureEncoder(el *gst.Element) {
	if e.res.kind == kindFFV1 {
		return
	}

	el.SetProperty("key-int-max", 1) // gop_size=1
	el.SetProperty("bframes", 0)     // max_b_frames=0
	el.SetProperty("tune", "zerolatency")

	if e.res.nvenc {
		el.SetProperty("preset", e.res.preset)
		el.SetProperty("cq", e.cfg.CRF)
	} else {
		el.SetProperty("speed-preset", e.res.preset)
		el.SetProperty("quantizer", e.cfg.CRF)
	}
}

func (e *Encoder) buildMuxerAndSink(outputPath string) (string, *gst.Element, error) {
	if e.cfg.LiveDash {
		sink, err := gst.NewElement("dashsink")
		if err != nil {
			return "", nil, &SetupError{Stage: "create dashsink", Err: err}
		}
		opts := buildDashOptions(e.fps, e.cfg.DashWindowSize, e.cfg.DashInitSegName, e.cfg.DashMediaSegName, false)
		applyDashOptions(sink, opts, outputPath)
		return dashMuxerName(e.res.kind), sink, nil
	}

	sink, err := gst.NewElement("filesink")
	if err != nil {
		return "", nil, &SetupError{Stage: "create filesink", Err: err}
	}
	sink.SetProperty("location", outputPath)

	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".mkv":
		return "matroskamux", sink, nil
	case ".mp4":
		return "mp4mux", sink, nil
	default:
		return "matroskamux", sink, nil
	}
}

// dashMuxerName names the muxer element linked in front of dashsink in
// live DASH mode; it is mp4mux for every codec kind.
func dashMuxerName(k kind) string {
	return "mp4mux"
}

func applyDashOptions(sink *gst.Element, opts dashOptions, outputDir string) {
	sink.SetProperty("mpd-filename", filepath.Join(outputDir, "stream.mpd"))
	sink.SetProperty("target-duration", opts.segDuration)
	sink.SetProperty("use-segment-list", !opts.useTemplate)
	sink.SetProperty("window-size", opts.windowSize)
	sink.SetProperty("init-segment-name", opts.initSegName)
	sink.SetProperty("media-segment-name", opts.mediaSegName)
}

// installSEIProbe attaches the packet-level NAL-prepend path to the
// encoder's output pad: no GStreamer H.264/H.265 encoder in the corpus's
// stack surfaces a way to inject an arbitrary unregistered-SEI payload
// through its own bitstream writer, so every carriesSEI frame is tagged
// this way rather than relying on encoder-native side-data support that
// the chosen elements do not actually have.
func (e *Encoder) installSEIProbe(encoderElement *gst.Element) {
	srcPad := encoderElement.GetStaticPad("src")
	if srcPad == nil {
		e.log.Warn("could not install SEI probe: encoder has no src pad")
		return
	}
	hevc := e.res.kind == kindHEVC
	srcPad.AddProbe(gst.PadProbeTypeBuffer, func(pad *gst.Pad, info *gst.PadProbeInfo) gst.PadProbeReturn {
		meta, ok := e.popPendingMeta()
		if !ok {
			return gst.PadProbeOK
		}
		buffer := info.GetBuffer()
		if buffer == nil {
			return gst.PadProbeOK
		}
		mapInfo := buffer.Map(gst.MapRead)
		packet := mapInfo.Bytes()
		rewritten := sei.Prepend(packet, hevc, meta.FrameID, meta.TimestampMs)
		buffer.Unmap()

		replacement := gst.NewBufferFromBytes(rewritten)
		replacement.SetPresentationTimestamp(buffer.PresentationTimestamp())
		replacement.SetDuration(buffer.Duration())
		info.Buffer = replacement
		return gst.PadProbeOK
	})
}

func (e *Encoder) pushPendingMeta(m model.FrameMetadata) {
	e.mu.Lock()
	e.pendingMeta = append(e.pendingMeta, m)
	e.mu.Unlock()
}

func (e *Encoder) popPendingMeta() (model.FrameMetadata, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pendingMeta) == 0 {
		return model.FrameMetadata{}, false
	}
	m := e.pendingMeta[0]
	e.pendingMeta = e.pendingMeta[1:]
	return m, true
}

// Encode submits one frame and its metadata. frame's dimensions must
// match the encoder's construction-time dimensions.
func (e *Encoder) Encode(frame *model.RGBFrame, meta model.FrameMetadata) error {
	if frame.Width != e.width || frame.Height != e.height {
		return &PacketError{Stage: "encode", Err: fmt.Errorf("frame %dx%d does not match encoder %dx%d", frame.Width, frame.Height, e.width, e.height)}
	}

	buffer := gst.NewBufferFromBytes(frame.Data)
	pts := time.Duration(e.nextPTS) * time.Second / time.Duration(e.fps)
	buffer.SetPresentationTimestamp(pts)
	buffer.SetDuration(time.Second / time.Duration(e.fps))
	e.nextPTS++

	if e.res.kind.carriesSEI() {
		e.pushPendingMeta(meta)
	}

	if ret := e.src.PushBuffer(buffer); ret != gst.FlowOK {
		return &PacketError{Stage: "push buffer", Err: fmt.Errorf("flow return %v", ret)}
	}
	return nil
}

// Flush submits end-of-stream, drains remaining packets, and writes the
// trailer. Idempotent: repeated calls are no-ops.
func (e *Encoder) Flush() error {
	if e.flushed {
		return nil
	}
	e.flushed = true

	if e.src != nil {
		e.src.EndStream()
	}
	if e.pipeline != nil {
		bus := e.pipeline.GetBus()
		bus.TimedPopFiltered(5*time.Second, gst.MessageEOS|gst.MessageError)
		if err := e.pipeline.SetState(gst.StateNull); err != nil {
			return &PacketError{Stage: "flush", Err: err}
		}
	}
	return nil
}

// Destroy runs Flush if not already run; Flush's transition to the null
// state is what releases the pipeline. Errors during destruction are
// suppressed, matching the resource
// discipline that destructors tolerate a partially initialized encoder.
func (e *Encoder) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	_ = e.Flush()
}
