package encode

import "strings"

// kind identifies the codec family resolved for one Encoder instance.
type kind int

const (
	kindFFV1 kind = iota
	kindH264
	kindHEVC
)

// resolution is the outcome of resolving an EncodeConfig's codec_name
// and lossless flag into a concrete GStreamer encoder element and its
// pixel-format/preset properties.
type resolution struct {
	kind    kind
	nvenc   bool
	element string
	pixFmt  string
	preset  string
}

// resolveCodec implements the Encoder setup step 2/3/4 codec and
// pixel-format/preset resolution.
func resolveCodec(codecName string, lossless bool) resolution {
	if lossless {
		return resolution{kind: kindFFV1, element: "avenc_ffv1", pixFmt: "YUV420P"}
	}

	nvenc := strings.Contains(strings.ToLower(codecName), "nvenc")
	// Exact encoder names first, then the substring rule.
	isHEVC := strings.EqualFold(codecName, "libx265") || isHEVCName(codecName)

	r := resolution{nvenc: nvenc}
	if isHEVC {
		r.kind = kindHEVC
		if nvenc {
			r.element = "nvh265enc"
		} else {
			r.element = "x265enc"
		}
	} else {
		r.kind = kindH264
		if nvenc {
			r.element = "nvh264enc"
		} else {
			r.element = "x264enc"
		}
	}

	if nvenc {
		r.pixFmt = "NV12"
		r.preset = "p2"
	} else {
		r.pixFmt = "YUV420P"
		r.preset = "veryfast"
	}

	return r
}

func isHEVCName(codecName string) bool {
	lower := strings.ToLower(codecName)
	return strings.Contains(lower, "hevc") || strings.Contains(lower, "h265") || strings.Contains(lower, "h.265")
}

func (k kind) carriesSEI() bool {
	return k == kindH264 || k == kindHEVC
}
