package profile

// Stopper stops a running profiler.
type Stopper interface{ Stop() }

// Profiler describes one profiling session.
type Profiler struct {
	// Mode is one of [Modes]. An empty Mode disables profiling.
	Mode string
	// Path is the directory receiving profile data.
	Path string
	// Quiet suppresses the profiler's own log output.
	Quiet bool
}

// Start starts profiling and returns the handle used to stop it.
//
// Without the pprof build tag, or with an empty or unknown Mode, Start
// returns a no-op Stopper. Stop is always safe to call.
func (p Profiler) Start() Stopper {
	if p.Mode == "" {
		return ignore{}
	}

	return start(p.Mode, p.Path, p.Quiet)
}

// Enabled reports whether profiling support was compiled in.
func Enabled() bool { return enabled }

type ignore struct{}

func (ignore) Stop() {}
