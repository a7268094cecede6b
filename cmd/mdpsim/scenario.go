package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/hwcomp"
	"github.com/gogpu/hwcomp/buffer"
	"github.com/gogpu/hwcomp/geom"
	"github.com/gogpu/hwcomp/hal"
)

// Scenario is a scripted sequence of frames.
type Scenario struct {
	Displays []DisplayEntry `yaml:"displays"`
	Frames   []FrameEntry   `yaml:"frames"`
}

// DisplayEntry connects a display.
type DisplayEntry struct {
	ID     int    `yaml:"id"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Format string `yaml:"format"`
}

// FrameEntry is one vsync. Repeat plays it again with the same layers.
type FrameEntry struct {
	Repeat     int           `yaml:"repeat"`
	Connect    []DisplayEntry `yaml:"connect"`
	Disconnect []int         `yaml:"disconnect"`
	Displays   []ListEntry    `yaml:"displays"`
}

// ListEntry is the layer list of one display in a frame.
type ListEntry struct {
	ID              int         `yaml:"id"`
	Blank           *bool       `yaml:"blank"`
	GeometryChanged bool        `yaml:"geometry_changed"`
	Layers          []LayerEntry `yaml:"layers"`
}

// LayerEntry describes one app layer. Rectangles are [left, top, right,
// bottom]; an omitted crop covers the whole buffer.
type LayerEntry struct {
	Handle     uint64 `yaml:"handle"`
	Format     string `yaml:"format"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Crop       []int  `yaml:"crop"`
	Frame      []int  `yaml:"frame"`
	Transform  string `yaml:"transform"`
	Blend      string `yaml:"blend"`
	Alpha      *int   `yaml:"alpha"`
	Secure     bool   `yaml:"secure"`
	Interlaced bool   `yaml:"interlaced"`
	Skip       bool   `yaml:"skip"`
	ColorFill  bool   `yaml:"color_fill"`
	Color      uint32 `yaml:"color"`
}

// LoadScenario reads a scenario file. Environment variables are expanded.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &sc, nil
}

func (d DisplayEntry) attributes() (hwcomp.DisplayAttributes, error) {
	attrs := hwcomp.DisplayAttributes{Width: d.Width, Height: d.Height}
	if d.Format != "" {
		f, err := buffer.ParseFormat(d.Format)
		if err != nil {
			return attrs, err
		}
		attrs.Format = f
	}
	return attrs, nil
}

func rect(v []int) (geom.Rect, error) {
	if len(v) != 4 {
		return geom.Rect{}, fmt.Errorf("rectangle needs 4 values, got %d", len(v))
	}
	return geom.R(v[0], v[1], v[2], v[3]), nil
}

func (s LayerEntry) layer() (hwcomp.Layer, error) {
	var l hwcomp.Layer
	var err error
	if l.DisplayFrame, err = rect(s.Frame); err != nil {
		return l, fmt.Errorf("frame: %w", err)
	}
	if l.Transform, err = geom.ParseTransform(s.Transform); err != nil {
		return l, err
	}
	l.Blend = hal.BlendPremultiplied
	if s.Blend != "" {
		if l.Blend, err = hal.ParseBlendMode(s.Blend); err != nil {
			return l, err
		}
	}
	l.PlaneAlpha = 0xFF
	if s.Alpha != nil {
		l.PlaneAlpha = uint8(*s.Alpha)
	}
	if s.Skip {
		l.Flags |= hwcomp.FlagSkip
	}
	if s.ColorFill {
		l.Flags |= hwcomp.FlagColorFill
		l.Color = s.Color
		return l, nil
	}

	format := buffer.FormatRGBA8888
	if s.Format != "" {
		if format, err = buffer.ParseFormat(s.Format); err != nil {
			return l, err
		}
	}
	w, h := s.Width, s.Height
	if w == 0 && h == 0 {
		w, h = l.DisplayFrame.Width(), l.DisplayFrame.Height()
	}
	var flags buffer.Flags
	if s.Secure {
		flags |= buffer.FlagSecure
	}
	if s.Interlaced {
		flags |= buffer.FlagInterlaced
	}
	l.Buffer = &buffer.Descriptor{
		ID:     s.Handle,
		Width:  w,
		Height: h,
		Format: format,
		Size:   buffer.Size(w, h, format),
		Flags:  flags,
	}
	l.SourceCrop = geom.R(0, 0, w, h)
	if s.Crop != nil {
		if l.SourceCrop, err = rect(s.Crop); err != nil {
			return l, fmt.Errorf("crop: %w", err)
		}
	}
	return l, nil
}

func (s ListEntry) list() (*hwcomp.LayerList, error) {
	list := &hwcomp.LayerList{Display: s.ID, GeometryChanged: s.GeometryChanged}
	for i, ls := range s.Layers {
		l, err := ls.layer()
		if err != nil {
			return nil, fmt.Errorf("display %d layer %d: %w", s.ID, i, err)
		}
		list.Layers = append(list.Layers, l)
	}
	return list, nil
}
