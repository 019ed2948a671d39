// Package debug holds trace switches read from the environment at startup.
//
//	OBJBRIDGE_DEBUG_SERIALIZE
//	OBJBRIDGE_DEBUG_POPULATE
//	OBJBRIDGE_DEBUG_RESOLVE
//	OBJBRIDGE_DEBUG_SCHEMA
//
// Each takes a value accepted by strconv.ParseBool.  Traces are written to
// the component's *slog.Logger at debug level.
package debug

import (
	"os"
	"strconv"
)

type debug struct {
	Serialize bool
	Populate  bool
	Resolve   bool
	Schema    bool
}

var d *debug

func init() {
	d = &debug{}
	d.Serialize = boolEnv("OBJBRIDGE_DEBUG_SERIALIZE")
	d.Populate = boolEnv("OBJBRIDGE_DEBUG_POPULATE")
	d.Resolve = boolEnv("OBJBRIDGE_DEBUG_RESOLVE")
	d.Schema = boolEnv("OBJBRIDGE_DEBUG_SCHEMA")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Serialize() bool {
	return d.Serialize
}
func Populate() bool {
	return d.Populate
}
func Resolve() bool {
	return d.Resolve
}
func Schema() bool {
	return d.Schema
}

// Set overrides the switches.  It is meant for tests and the CLI -v flag
// and must not race with engine calls.
func Set(serialize, populate, resolve, schema bool) {
	d.Serialize = serialize
	d.Populate = populate
	d.Resolve = resolve
	d.Schema = schema
}
