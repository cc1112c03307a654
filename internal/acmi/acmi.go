// Package acmi reads Tacview ACMI recordings of BFM test missions and
// measures the MiG's turn performance against the expected envelope.
//
// Recordings are plain text or zip-compressed. Only the properties the
// analyzers need are kept: identity metadata, the transform (T) and the
// AOA, TAS and Mach telemetry.
package acmi

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

var zipMagic = []byte("PK\x03\x04")

// metaKeys are the object properties kept as metadata.
var metaKeys = []string{"Name", "Type", "Group", "Pilot", "Country", "Coalition"}

// State is one transform sample with earlier values carried forward.
type State struct {
	Time     float64
	Lon, Lat float64
	AltM     float64
	U, V     float64 // flat-earth metres, valid when HasUV
	HasUV    bool
	HasAlt   bool
	Roll     float64
	Pitch    float64
	Yaw      float64
	Heading  float64 // degrees; Yaw when the recording has no heading

	AOA  *float64
	TAS  *float64 // m/s
	Mach *float64
}

// Object is one recorded entity.
type Object struct {
	ID     string
	Meta   map[string]string
	States []State
}

// Name, Type and Group return the metadata of the same name.
func (o *Object) Name() string  { return o.Meta["Name"] }
func (o *Object) Type() string  { return o.Meta["Type"] }
func (o *Object) Group() string { return o.Meta["Group"] }

// IsAircraft reports whether the Type tags mark a fixed-wing or air object.
func (o *Object) IsAircraft() bool {
	t := o.Type()
	return strings.Contains(t, "FixedWing") || strings.Contains(t, "Air")
}

// Recording is a parsed ACMI file.
type Recording struct {
	Objects []*Object // in order of first appearance
	Lines   int
}

// Open reads a plain or zip-compressed recording from path.
func Open(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("acmi: %w", err)
	}
	if !bytes.HasPrefix(data, zipMagic) {
		return Parse(bytes.NewReader(data))
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("acmi: %s: %w", path, err)
	}
	if len(zr.File) == 0 {
		return nil, fmt.Errorf("acmi: %s: empty archive", path)
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("acmi: %s: %w", path, err)
	}
	defer rc.Close()
	return Parse(rc)
}

// Parse reads a recording. Lines that are not object updates are skipped.
func Parse(r io.Reader) (*Recording, error) {
	rec := &Recording{}
	byID := make(map[string]*Object)
	now := 0.0

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		rec.Lines++
		line := strings.TrimRight(sc.Text(), "\r")
		line = strings.TrimPrefix(line, "\ufeff")
		switch {
		case line == "",
			strings.HasPrefix(line, "//"),
			strings.HasPrefix(line, "FileType"),
			strings.HasPrefix(line, "FileVersion"):
			continue
		case strings.HasPrefix(line, "#"):
			if t, err := strconv.ParseFloat(line[1:], 64); err == nil {
				now = t
			}
			continue
		}

		id, rest, ok := strings.Cut(line, ",")
		if !ok || id == "0" || strings.HasPrefix(id, "-") {
			continue
		}
		obj := byID[id]
		if obj == nil {
			obj = &Object{ID: id, Meta: make(map[string]string)}
			byID[id] = obj
			rec.Objects = append(rec.Objects, obj)
		}

		props := make(map[string]string)
		for _, seg := range strings.Split(rest, ",") {
			if k, v, ok := strings.Cut(seg, "="); ok {
				props[k] = v
			}
		}
		for _, k := range metaKeys {
			if v, ok := props[k]; ok {
				obj.Meta[k] = v
			}
		}

		t, ok := props["T"]
		if !ok {
			continue
		}
		var st State
		if n := len(obj.States); n > 0 {
			st = obj.States[n-1]
			st.AOA, st.TAS, st.Mach = nil, nil, nil
		}
		st.Time = now
		applyTransform(&st, t)
		st.AOA = optFloat(props, "AOA")
		st.TAS = optFloat(props, "TAS")
		st.Mach = optFloat(props, "Mach")
		obj.States = append(obj.States, st)
	}
	if err := sc.Err(); err != nil {
		return rec, fmt.Errorf("acmi: line %d: %w", rec.Lines+1, err)
	}
	return rec, nil
}

// applyTransform updates st from a T value. Empty fields keep the
// previous value. Layouts:
//
//	Lon|Lat|Alt
//	Lon|Lat|Alt|U|V
//	Lon|Lat|Alt|Roll|Pitch|Yaw
//	Lon|Lat|Alt|Roll|Pitch|Yaw|U|V|Heading
func applyTransform(st *State, t string) {
	parts := strings.Split(t, "|")
	set := func(i int, dst *float64) bool {
		if i >= len(parts) || parts[i] == "" {
			return false
		}
		v, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return false
		}
		*dst = v
		return true
	}

	set(0, &st.Lon)
	set(1, &st.Lat)
	if set(2, &st.AltM) {
		st.HasAlt = true
	}

	uAt, vAt := -1, -1
	switch {
	case len(parts) == 5:
		uAt, vAt = 3, 4
	case len(parts) >= 6:
		set(3, &st.Roll)
		set(4, &st.Pitch)
		set(5, &st.Yaw)
		uAt, vAt = 6, 7
	}
	if !set(8, &st.Heading) {
		st.Heading = st.Yaw
	}
	if uAt >= 0 {
		gotU := set(uAt, &st.U)
		gotV := set(vAt, &st.V)
		if gotU && gotV {
			st.HasUV = true
		}
	}
}

func optFloat(props map[string]string, key string) *float64 {
	s, ok := props[key]
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ErrNoRecording is returned by Latest when the directory has no ACMI file.
var ErrNoRecording = errors.New("acmi: no recording found")

// Latest returns the most recently modified *.acmi file in dir, ignoring
// files modified before after (zero means no limit).
func Latest(dir string, after time.Time) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.acmi"))
	if err != nil {
		return "", fmt.Errorf("acmi: %w", err)
	}
	var best string
	var bestMod time.Time
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("acmi: %w", err)
		}
		if fi.IsDir() || (!after.IsZero() && !fi.ModTime().After(after)) {
			continue
		}
		if best == "" || fi.ModTime().After(bestMod) {
			best, bestMod = m, fi.ModTime()
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w in %s", ErrNoRecording, dir)
	}
	return best, nil
}
