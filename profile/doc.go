// Package profile provides optional runtime profiling for atsub.
//
// # Overview
//
// The package wraps [github.com/pkg/profile] behind the "pprof" build tag.
// Built without the tag, every operation is a no-op and [Modes] is empty.
//
//	go build -tags pprof .
//
// # Modes
//
// With the tag, the following modes are available (see [Modes]):
//
//   - allocs:    memory allocation profiling (all allocations)
//   - block:     blocking profiling
//   - clock:     wall-clock profiling
//   - cpu:       CPU profiling
//   - goroutine: goroutine profiling
//   - heap:      heap profiling (live allocations)
//   - mem:       general memory profiling
//   - mutex:     mutex contention profiling
//   - thread:    thread creation profiling
//   - trace:     execution trace
//
// # Usage
//
//	p := profile.Profiler{Mode: "cpu", Path: "/tmp/profiles"}
//	defer p.Start().Stop()
//
// From the command line:
//
//	atsub --pprof-mode=cpu --source=template.txt ctx.yaml
//	atsub --pprof-mode=heap --pprof-dir=./profiles check -s template.txt
//
// The default output directory is "pprof" under the user cache directory,
// for example $XDG_CACHE_HOME/atsub/pprof on Linux.
//
// # Analysis
//
//	go tool pprof -http=: ~/.cache/atsub/pprof/cpu.pprof
//
// With the tag, [net/http/pprof] is also linked in, registering handlers under
// /debug/pprof/ on [net/http.DefaultServeMux].
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
