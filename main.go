// Command swegen regenerates the JavaScript client bindings for the
// wasm ephemeris module from its C header.
//
// Pipeline: extract declarations from the header, order constants by
// their value dependencies, classify everything into cosmetic groups,
// synthesize one wrapper per routine from the configuration table,
// and emit the artifact documents. The run is a deterministic,
// single-pass batch: it either completes fully or writes nothing
// usable.
package main

import (
	"cmp"
	"fmt"
	"iter"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/alecthomas/kong"
	"github.com/olekukonko/tablewriter"

	"github.com/swephjs/swegen/category"
	"github.com/swephjs/swegen/depgraph"
	"github.com/swephjs/swegen/emit"
	"github.com/swephjs/swegen/header"
	"github.com/swephjs/swegen/routines"
	"github.com/swephjs/swegen/synth"
)

var cli struct {
	Header   string `arg:"" default:"swephexp.h" help:"Native header to read declarations from."`
	Out      string `default:"bindings" help:"Directory the artifacts are written to."`
	Routines string `help:"TOML file overriding entries of the built-in routine table."`
	Strict   bool   `help:"Fail on the first unrecognized declaration instead of dropping it."`
	Dot      string `help:"Write the constant dependency graph as graphviz DOT code to this file."`
	LogLevel string `default:"info" enum:"info,warn,error" help:"Minimum log level."`
}

func sortedMapAll[Map ~map[K]V, K cmp.Ordered, V any](m Map) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, k := range slices.Sorted(maps.Keys(m)) {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}

func main() {
	kong.Parse(&cli,
		kong.Name("swegen"),
		kong.Description("Regenerate the wasm ephemeris JavaScript bindings from the native header."),
		kong.UsageOnError(),
	)

	log := &Logger{Writer: os.Stderr, MinLevel: ParseLogLevel(cli.LogLevel)}

	timeStart := time.Now()

	src, err := os.ReadFile(cli.Header)
	if err != nil {
		log.Log(FATAL, "read header: %v", err)
	}

	parse := header.Parse
	if cli.Strict {
		parse = header.ParseStrict
	}
	set, err := parse(src)
	if err != nil {
		log.Log(FATAL, "parse header: %v", err)
	}

	timeParse := time.Since(timeStart)
	timeStart = time.Now()

	res := depgraph.Sort(set.Constants)
	for name, reason := range sortedMapAll(res.Excluded) {
		log.Log(WARN, "excluding constant %v: %v", name, reason)
	}
	for _, name := range res.Cyclic {
		log.Log(WARN, "constant %v participates in a dependency cycle; emitted order around the cycle is permissive", name)
	}

	if cli.Dot != "" {
		if err := os.WriteFile(cli.Dot, depgraph.DOTCode(set.Constants, res.Excluded), 0o666); err != nil {
			log.Log(FATAL, "write dependency graph: %v", err)
		}
	}

	timeResolve := time.Since(timeStart)
	timeStart = time.Now()

	var table *routines.Table
	if cli.Routines != "" {
		table, err = routines.Load(cli.Routines)
	} else {
		table, err = routines.Default()
	}
	if err != nil {
		log.Log(FATAL, "load routine table: %v", err)
	}

	var methods []string
	numSkipped := 0
	for _, r := range set.Routines {
		cfg := table.Lookup(r.Name)
		m, err := synth.Routine(r, cfg)
		if err != nil {
			log.Log(FATAL, "synthesize wrapper: %v", err)
		}
		if m == "" {
			numSkipped++
			continue
		}
		methods = append(methods, m)
	}

	timeSynth := time.Since(timeStart)
	timeStart = time.Now()

	var arts []emit.Artifact
	for _, build := range []func() (emit.Artifact, error){
		func() (emit.Artifact, error) { return emit.Constants(cli.Header, res.Ordered) },
		func() (emit.Artifact, error) { return emit.RawSignatures(cli.Header, set.Routines) },
		func() (emit.Artifact, error) { return emit.Wrappers(cli.Header, methods) },
		func() (emit.Artifact, error) { return emit.ExportList(set.Routines), nil },
	} {
		a, err := build()
		if err != nil {
			log.Log(FATAL, "render artifacts: %v", err)
		}
		arts = append(arts, a)
	}
	if err := emit.WriteAll(cli.Out, arts); err != nil {
		log.Log(FATAL, "write artifacts: %v", err)
	}

	timeWrite := time.Since(timeStart)

	printStats(set, res, methods, numSkipped)
	printTimings(timeParse, timeResolve, timeSynth, timeWrite)

	fmt.Printf("\nWrote bindings to %v\n", cli.Out)
}

func printStats(set *header.Set, res depgraph.Result, methods []string, numSkipped int) {
	numConsts := make(map[category.Category]int)
	for _, c := range res.Ordered {
		numConsts[category.OfConstant(c.Name)]++
	}
	numRoutines := make(map[category.Category]int)
	for _, r := range set.Routines {
		numRoutines[category.OfRoutine(r.Name)]++
	}

	fmt.Printf("==Binding stats==\n")
	tbl := tablewriter.NewWriter(os.Stdout)
	tbl.SetHeader([]string{"Category", "Constants", "Routines"})
	for _, cat := range category.All {
		if numConsts[cat] == 0 && numRoutines[cat] == 0 {
			continue
		}
		tbl.Append([]string{
			cat.Title(),
			strconv.Itoa(numConsts[cat]),
			strconv.Itoa(numRoutines[cat]),
		})
	}
	tbl.Append([]string{"==TOTAL==", strconv.Itoa(len(res.Ordered)), strconv.Itoa(len(set.Routines))})
	tbl.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER})
	tbl.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	tbl.SetCenterSeparator("|")
	tbl.Render()
	fmt.Printf(
		"Dropped %v constant(s) and %v routine(s) during extraction, excluded %v constant(s) during resolution, skipped %v configured routine(s).\n",
		set.DroppedConstants, set.DroppedRoutines, len(res.Excluded), numSkipped,
	)
	fmt.Printf("Generated %v wrapper(s).\n", len(methods))
}

func printTimings(timeParse, timeResolve, timeSynth, timeWrite time.Duration) {
	timeTotal := timeParse + timeResolve + timeSynth + timeWrite
	timePercent := func(t time.Duration) string {
		return strconv.FormatFloat(
			float64(t)/float64(timeTotal)*100,
			'f', 2, 64,
		)
	}

	fmt.Printf("\n==Timing stats==\n")
	tbl := tablewriter.NewWriter(os.Stdout)
	tbl.SetHeader([]string{"Task", "Time", "Time %"})
	tbl.AppendBulk([][]string{
		{"Extract declarations", timeParse.String(), timePercent(timeParse)},
		{"Resolve dependencies", timeResolve.String(), timePercent(timeResolve)},
		{"Synthesize wrappers", timeSynth.String(), timePercent(timeSynth)},
		{"Render and write artifacts", timeWrite.String(), timePercent(timeWrite)},
		{"==TOTAL==", timeTotal.String(), "100"},
	})
	tbl.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_RIGHT})
	tbl.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	tbl.SetCenterSeparator("|")
	tbl.Render()
}
