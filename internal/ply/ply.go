// Package ply loads Gaussian splat point clouds from PLY files, ASCII or
// binary-little-endian, with a variable vertex property layout.
package ply

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/tigas/renderer-encoder/internal/model"
)

const sphericalHarmonicDC0 = 0.28209479177387814

type propType int

const (
	typeInt8 propType = iota
	typeUint8
	typeInt16
	typeUint16
	typeInt32
	typeUint32
	typeFloat32
	typeFloat64
)

func (t propType) size() int {
	switch t {
	case typeInt8, typeUint8:
		return 1
	case typeInt16, typeUint16:
		return 2
	case typeInt32, typeUint32, typeFloat32:
		return 4
	case typeFloat64:
		return 8
	}
	return 0
}

func parsePropType(tok string) (propType, bool) {
	switch tok {
	case "char", "int8":
		return typeInt8, true
	case "uchar", "uint8":
		return typeUint8, true
	case "short", "int16":
		return typeInt16, true
	case "ushort", "uint16":
		return typeUint16, true
	case "int", "int32":
		return typeInt32, true
	case "uint", "uint32":
		return typeUint32, true
	case "float", "float32":
		return typeFloat32, true
	case "double", "float64":
		return typeFloat64, true
	}
	return 0, false
}

type property struct {
	name string
	typ  propType
}

type format int

const (
	formatASCII format = iota
	formatBinaryLE
)

type header struct {
	format      format
	vertexCount int
	properties  []property
	unsupported bool
}

// Load parses the PLY file at path and returns its vertices as Points. A
// missing file, unsupported format, unsupported property layout, or
// truncated body all result in an empty, non-nil slice rather than an
// error: interpreting PLY file transport failures is left to the caller.
func Load(path string) ([]model.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return []model.Point{}, nil
	}
	defer f.Close()

	r := bufio.NewReader(f)
	hdr, err := parseHeader(r)
	if err != nil || hdr.unsupported {
		return []model.Point{}, nil
	}

	var points []model.Point
	switch hdr.format {
	case formatASCII:
		points, err = parseASCIIBody(r, hdr)
	case formatBinaryLE:
		points, err = parseBinaryBody(r, hdr)
	}
	if err != nil {
		return []model.Point{}, nil
	}
	return points, nil
}

func parseHeader(r *bufio.Reader) (header, error) {
	hdr := header{}
	line, err := readLine(r)
	if err != nil || strings.TrimSpace(line) != "ply" {
		return hdr, io.ErrUnexpectedEOF
	}

	inVertex := false
	haveFormat := false
	for {
		line, err = readLine(r)
		if err != nil {
			return hdr, err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			haveFormat = true
			if len(fields) < 2 {
				hdr.unsupported = true
				continue
			}
			switch fields[1] {
			case "ascii":
				hdr.format = formatASCII
			case "binary_little_endian":
				hdr.format = formatBinaryLE
			default:
				hdr.unsupported = true
			}
		case "element":
			if len(fields) < 3 {
				continue
			}
			inVertex = fields[1] == "vertex"
			if inVertex {
				n, err := strconv.Atoi(fields[2])
				if err != nil {
					hdr.unsupported = true
				}
				hdr.vertexCount = n
			}
		case "property":
			if !inVertex {
				continue
			}
			if len(fields) >= 2 && fields[1] == "list" {
				hdr.unsupported = true
				continue
			}
			if len(fields) < 3 {
				continue
			}
			typ, ok := parsePropType(fields[1])
			if !ok {
				hdr.unsupported = true
				continue
			}
			hdr.properties = append(hdr.properties, property{name: fields[2], typ: typ})
		case "end_header":
			if !haveFormat {
				hdr.unsupported = true
			}
			return hdr, nil
		}
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return line, nil
}

func parseASCIIBody(r *bufio.Reader, hdr header) ([]model.Point, error) {
	points := make([]model.Point, 0, hdr.vertexCount)
	for i := 0; i < hdr.vertexCount; i++ {
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		fields := strings.Fields(line)
		if len(fields) < len(hdr.properties) {
			return nil, io.ErrUnexpectedEOF
		}
		values := make(map[string]float64, len(hdr.properties))
		for i, p := range hdr.properties {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, err
			}
			values[p.name] = v
		}
		points = append(points, synthesizePoint(values))
	}
	return points, nil
}

func parseBinaryBody(r *bufio.Reader, hdr header) ([]model.Point, error) {
	points := make([]model.Point, 0, hdr.vertexCount)
	for i := 0; i < hdr.vertexCount; i++ {
		values := make(map[string]float64, len(hdr.properties))
		for _, p := range hdr.properties {
			buf := make([]byte, p.typ.size())
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, err
			}
			values[p.name] = decodeScalar(buf, p.typ)
		}
		points = append(points, synthesizePoint(values))
	}
	return points, nil
}

func decodeScalar(buf []byte, typ propType) float64 {
	switch typ {
	case typeInt8:
		return float64(int8(buf[0]))
	case typeUint8:
		return float64(buf[0])
	case typeInt16:
		return float64(int16(binary.LittleEndian.Uint16(buf)))
	case typeUint16:
		return float64(binary.LittleEndian.Uint16(buf))
	case typeInt32:
		return float64(int32(binary.LittleEndian.Uint32(buf)))
	case typeUint32:
		return float64(binary.LittleEndian.Uint32(buf))
	case typeFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	case typeFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(buf))
	}
	return 0
}

func synthesizePoint(v map[string]float64) model.Point {
	p := model.Point{
		X: float32(lookup(v, "x")),
		Y: float32(lookup(v, "y")),
		Z: float32(lookup(v, "z")),
	}

	r, g, b, ok := lookupColor(v)
	if ok {
		p.R, p.G, p.B = r, g, b
	} else if dc0, dc1, dc2, ok := lookupSH(v); ok {
		p.R = shToByte(dc0)
		p.G = shToByte(dc1)
		p.B = shToByte(dc2)
	} else {
		p.R, p.G, p.B = 255, 255, 255
	}

	opacityRaw, hasOpacity := v["opacity"]
	if hasOpacity {
		p.Opacity = float32(clamp(sigmoid(opacityRaw), 0.02, 1.0))
	} else {
		p.Opacity = float32(clamp(sigmoid(0), 0.02, 1.0))
	}

	mean, hasScale := lookupScaleMean(v)
	if !hasScale {
		mean = -1.5
	}
	p.Radius = float32(clamp(math.Exp(mean), 0.25, 8.0))

	return p
}

func lookup(v map[string]float64, key string) float64 {
	return v[key]
}

func lookupColor(v map[string]float64) (r, g, b uint8, ok bool) {
	rv, rok := firstOf(v, "red", "r")
	gv, gok := firstOf(v, "green", "g")
	bv, bok := firstOf(v, "blue", "b")
	if !rok || !gok || !bok {
		return 0, 0, 0, false
	}
	return clampByte(rv), clampByte(gv), clampByte(bv), true
}

func lookupSH(v map[string]float64) (dc0, dc1, dc2 float64, ok bool) {
	a, aok := v["f_dc_0"]
	b, bok := v["f_dc_1"]
	c, cok := v["f_dc_2"]
	if !aok || !bok || !cok {
		return 0, 0, 0, false
	}
	return a, b, c, true
}

func lookupScaleMean(v map[string]float64) (float64, bool) {
	s0, ok0 := v["scale_0"]
	s1, ok1 := v["scale_1"]
	s2, ok2 := v["scale_2"]
	if !ok0 || !ok1 || !ok2 {
		return 0, false
	}
	return (s0 + s1 + s2) / 3, true
}

func firstOf(v map[string]float64, keys ...string) (float64, bool) {
	for _, k := range keys {
		if val, ok := v[k]; ok {
			return val, true
		}
	}
	return 0, false
}

func shToByte(dc float64) uint8 {
	return clampByte(clamp(0.5+sphericalHarmonicDC0*dc, 0, 1) * 255)
}

func clampByte(v float64) uint8 {
	return uint8(clamp(v, 0, 255))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
