package mission

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/vovakirdan/fmlab/internal/core"
	"github.com/vovakirdan/fmlab/internal/profile"
)

const (
	scriptDictKey = "DictKey_ActionText_1"
	countryRussia = 0
	countryUSA    = 2
)

// document is the coalition-neutral content of a .miz archive.
type document struct {
	theatre        string
	start          time.Time
	sortie         string
	description    string
	triggerComment string
	script         string
	flights        []flight
}

// flight is one single-ship air group started in the air.
type flight struct {
	name     string
	typeName string
	blue     bool
	altM     float64
	speedMps float64
	heading  float64 // degrees
	fuelKg   int
	route    []routePoint
}

type routePoint struct {
	pos      core.Point
	altM     float64
	speedMps float64
	tasks    []any
}

func orbitTask(o *profile.Orbit) *table {
	return newTable(
		"number", 1,
		"auto", false,
		"id", "Orbit",
		"enabled", true,
		"params", newTable(
			"altitude", core.FeetToMeters(o.AltitudeFt),
			"pattern", o.Pattern.String(),
			"speed", core.KnotsToMps(o.SpeedKt),
			"altitudeEdited", true,
			"speedEdited", true,
		),
	)
}

// engageTask lets the group attack any aircraft within maxDistM.
func engageTask(maxDistM float64) *table {
	return newTable(
		"number", 1,
		"auto", false,
		"id", "EngageTargets",
		"enabled", true,
		"key", "CAP",
		"params", newTable(
			"targetTypes", []any{"Planes"},
			"noTargetTypes", []any{},
			"priority", 0,
			"maxDistEnabled", true,
			"maxDist", maxDistM,
		),
	)
}

func waypointTable(rp routePoint, first bool) *table {
	return newTable(
		"type", "Turning Point",
		"action", "Turning Point",
		"alt", rp.altM,
		"alt_type", "BARO",
		"speed", rp.speedMps,
		"speed_locked", true,
		"ETA", 0,
		"ETA_locked", first,
		"x", rp.pos.X,
		"y", rp.pos.Y,
		"formation_template", "",
		"task", newTable(
			"id", "ComboTask",
			"params", newTable("tasks", rp.tasks),
		),
	)
}

func (f flight) groupTable(groupID int) *table {
	points := make([]any, len(f.route))
	for i, rp := range f.route {
		points[i] = waypointTable(rp, i == 0)
	}
	origin := f.route[0].pos

	unit := newTable(
		"type", f.typeName,
		"name", fmt.Sprintf("%s-1", f.name),
		"unitId", groupID,
		"x", origin.X,
		"y", origin.Y,
		"alt", f.altM,
		"alt_type", "BARO",
		"speed", f.speedMps,
		"heading", f.heading*math.Pi/180,
		"skill", "High",
		"livery_id", "default",
		"onboard_num", fmt.Sprintf("%03d", groupID),
		"callsign", 100+groupID,
		"payload", newTable(
			"fuel", f.fuelKg,
			"flare", 0,
			"chaff", 0,
			"gun", 100,
			"pylons", []any{},
		),
	)

	return newTable(
		"name", f.name,
		"groupId", groupID,
		"task", "CAP",
		"hidden", false,
		"uncontrolled", false,
		"communication", true,
		"frequency", 124,
		"modulation", 0,
		"start_time", 0,
		"x", origin.X,
		"y", origin.Y,
		"route", newTable("points", points),
		"units", []any{unit},
	)
}

// document converts the assembled groups for writing.
func (a *Artifact) document() document {
	doc := document{
		theatre:        a.Options.Theatre,
		start:          a.Options.StartTime,
		sortie:         "FM test " + a.RunID,
		description:    fmt.Sprintf("Flight-model test run %s, %d groups", a.RunID, len(a.Groups)),
		triggerComment: "MiG-17 FM Test Logger",
		script:         a.Script,
	}
	for _, g := range a.Groups {
		p := g.Profile
		pts := g.Points()
		route := make([]routePoint, len(pts))
		for i, pos := range pts {
			rp := routePoint{
				pos:      pos,
				altM:     core.FeetToMeters(p.WaypointAltitude(i)),
				speedMps: core.KnotsToMps(p.WaypointSpeed(i)),
			}
			if i == 0 {
				rp.altM = core.FeetToMeters(p.AltitudeFt)
				rp.speedMps = core.KnotsToMps(p.SpeedKt)
			}
			if o := p.Waypoints[i].Orbit; o != nil {
				rp.tasks = append(rp.tasks, orbitTask(o))
			}
			route[i] = rp
		}
		doc.flights = append(doc.flights, flight{
			name:     g.GroupName,
			typeName: g.TypeName,
			altM:     core.FeetToMeters(p.AltitudeFt),
			speedMps: core.KnotsToMps(p.SpeedKt),
			heading:  p.Heading(),
			fuelKg:   int(a.Options.Script.FuelMaxKg * core.ClampF(p.FuelFraction, 0, 1)),
			route:    route,
		})
	}
	return doc
}

func calmWeather() *table {
	still := func() *table { return newTable("speed", 0, "dir", 0) }
	return newTable(
		"name", "Calm",
		"atmosphere_type", 0,
		"type_weather", 0,
		"wind", newTable("atGround", still(), "at2000", still(), "at8000", still()),
		"groundTurbulence", 0,
		"season", newTable("temperature", 15),
		"qnh", 759,
		"enable_fog", false,
		"fog", newTable("thickness", 0, "visibility", 0),
		"enable_dust", false,
		"dust_density", 0,
		"visibility", newTable("distance", 80000),
		"clouds", newTable("density", 0, "thickness", 0, "base", 0, "iprecptns", 0),
		"cyclones", []any{},
	)
}

// extent is the bounding box of every route point.
func (d document) extent() core.Rect {
	var pts []core.Point
	for _, f := range d.flights {
		for _, rp := range f.route {
			pts = append(pts, rp.pos)
		}
	}
	return core.BoundsOf(pts)
}

func countryTable(id int, name string, groups []any) *table {
	if len(groups) == 0 {
		return newTable("id", id, "name", name)
	}
	return newTable("id", id, "name", name, "plane", newTable("group", groups))
}

// missionTable builds the mission document.
func (d document) missionTable() *table {
	var red, blue []any
	for i, f := range d.flights {
		if f.blue {
			blue = append(blue, f.groupTable(i+1))
		} else {
			red = append(red, f.groupTable(i+1))
		}
	}

	start := d.start.UTC()
	secs := start.Hour()*3600 + start.Minute()*60 + start.Second()
	center := d.extent().Center()

	fire := "if mission.trig.conditions[1]() then mission.trig.actions[1]() end"
	return newTable(
		"version", 19,
		"theatre", d.theatre,
		"date", newTable("Year", start.Year(), "Month", int(start.Month()), "Day", start.Day()),
		"start_time", secs,
		"sortie", d.sortie,
		"descriptionText", d.description,
		"weather", calmWeather(),
		"map", newTable("centerX", center.X, "centerY", center.Y, "zoom", 1000000),
		"coalitions", newTable(
			"red", []any{countryRussia},
			"blue", []any{countryUSA},
			"neutrals", []any{},
		),
		"coalition", newTable(
			"red", newTable(
				"name", "red",
				"country", []any{countryTable(countryRussia, "Russia", red)},
			),
			"blue", newTable(
				"name", "blue",
				"country", []any{countryTable(countryUSA, "USA", blue)},
			),
		),
		"trig", newTable(
			"actions", []any{fmt.Sprintf("a_do_script(getValueDictByKey(%q));", scriptDictKey)},
			"conditions", []any{"return(true)"},
			"flag", []any{true},
			"func", []any{},
			"funcStartup", []any{fire},
			"events", []any{},
			"custom", []any{},
			"customStartup", []any{},
		),
		"trigrules", []any{newTable(
			"comment", d.triggerComment,
			"eventlist", "",
			"predicate", "triggerStart",
			"rules", []any{},
			"actions", []any{newTable(
				"predicate", "a_do_script",
				"text", scriptDictKey,
				"KeyDict_text", scriptDictKey,
				"ai_task", []any{"", ""},
			)},
		)},
		"maxDictId", 1,
		"requiredModules", newTable(),
		"failures", newTable(),
		"forcedOptions", newTable(),
	)
}

type mizFile struct {
	name    string
	varName string
	value   any
}

func (d document) files() []mizFile {
	return []mizFile{
		{"mission", "mission", d.missionTable()},
		{"options", "options", newTable()},
		{"warehouses", "warehouses", newTable("airports", newTable(), "warehouses", newTable())},
		{"l10n/DEFAULT/dictionary", "dictionary", newTable(scriptDictKey, d.script)},
		{"l10n/DEFAULT/mapResource", "mapResource", newTable()},
	}
}

// write renders the archive. Every generated Lua file and the trigger
// script are syntax-checked first.
func (d document) write(w io.Writer) error {
	if err := checkLua("trigger script", d.script); err != nil {
		return err
	}

	type rendered struct {
		name string
		data []byte
	}
	var docs []rendered
	for _, f := range d.files() {
		var buf bytes.Buffer
		if err := writeAssignment(&buf, f.varName, f.value); err != nil {
			return err
		}
		if err := checkLua(f.name, buf.String()); err != nil {
			return err
		}
		docs = append(docs, rendered{f.name, buf.Bytes()})
	}

	zw := zip.NewWriter(w)
	for _, doc := range docs {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     doc.name,
			Method:   zip.Deflate,
			Modified: d.start,
		})
		if err != nil {
			return fmt.Errorf("mission: cannot add %s: %w", doc.name, err)
		}
		if _, err := fw.Write(doc.data); err != nil {
			return fmt.Errorf("mission: cannot write %s: %w", doc.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("mission: cannot finish archive: %w", err)
	}
	return nil
}

// saveArchive writes the rendered archive to path, creating parent
// directories.
func saveArchive(path string, render func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mission: cannot create %s: %w", filepath.Dir(path), err)
	}

	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("mission: cannot write %s: %w", path, err)
	}
	return nil
}

// WriteMiz writes the mission archive. Every generated Lua file and the
// logger script are syntax-checked first.
func (a *Artifact) WriteMiz(w io.Writer) error {
	return a.document().write(w)
}

// Save writes the archive to path, creating parent directories.
func (a *Artifact) Save(path string) error {
	return saveArchive(path, a.WriteMiz)
}
