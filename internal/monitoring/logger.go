package monitoring

import (
	"log"
	"time"
)

// Logf is the package-level diagnostic logger used by the graph passes. It
// defaults to log.Printf but may be replaced by SetLogger. Tests or
// production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Timed logs one line when the returned func is called, e.g.
//
//	defer monitoring.Timed("build", "%dx%d", w, h)()
//
// The line reads "<pass>: <detail> (<elapsed>)".
func Timed(pass, format string, v ...interface{}) func() {
	start := time.Now()
	return func() {
		args := append([]interface{}{pass}, v...)
		args = append(args, time.Since(start).Round(time.Microsecond))
		Logf("%s: "+format+" (%v)", args...)
	}
}
