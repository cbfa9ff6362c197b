// Package profiling serves the runtime pprof endpoints. They expose
// goroutine stacks and heap contents, so serve only mounts them when
// server.pprof is set.
package profiling

import (
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi/v5"
)

// Path is where Mount attaches the profiling routes
const Path = "/debug/pprof"

// Profiles are the named runtime profiles served under Path
var Profiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

// Handler returns the profiling routes relative to Path
func Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/", pprof.Index)
	r.Get("/cmdline", pprof.Cmdline)
	r.HandleFunc("/profile", pprof.Profile)
	r.HandleFunc("/symbol", pprof.Symbol)
	r.HandleFunc("/trace", pprof.Trace)
	for _, name := range Profiles {
		r.Handle("/"+name, pprof.Handler(name))
	}
	return r
}

// Mount attaches Handler to router under Path
func Mount(router chi.Router) {
	router.Mount(Path, Handler())
}
