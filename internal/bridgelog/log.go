// Package bridgelog provides leveled, component-tagged logging for the
// telemetry bridge. Time/date are left to the process supervisor
// (systemd adds them); prefixes follow the sd-daemon convention:
// https://www.freedesktop.org/software/systemd/man/sd-daemon.html
package bridgelog

import (
	"fmt"
	"io"
	"log"
	"os"
)

var logDateTime bool

var (
	DebugWriter io.Writer = os.Stderr
	NoteWriter  io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
	CritWriter  io.Writer = os.Stderr
)

var (
	debugPrefix = "<7>[DEBUG]    "
	infoPrefix  = "<6>[INFO]     "
	notePrefix  = "<5>[NOTICE]   "
	warnPrefix  = "<4>[WARNING]  "
	errPrefix   = "<3>[ERROR]    "
	critPrefix  = "<2>[CRITICAL] "
)

var (
	debugLog = log.New(DebugWriter, debugPrefix, 0)
	infoLog  = log.New(InfoWriter, infoPrefix, 0)
	noteLog  = log.New(NoteWriter, notePrefix, log.Lshortfile)
	warnLog  = log.New(WarnWriter, warnPrefix, log.Lshortfile)
	errLog   = log.New(ErrWriter, errPrefix, log.Llongfile)
	critLog  = log.New(CritWriter, critPrefix, log.Llongfile)

	debugTimeLog = log.New(DebugWriter, debugPrefix, log.LstdFlags)
	infoTimeLog  = log.New(InfoWriter, infoPrefix, log.LstdFlags)
	noteTimeLog  = log.New(NoteWriter, notePrefix, log.LstdFlags|log.Lshortfile)
	warnTimeLog  = log.New(WarnWriter, warnPrefix, log.LstdFlags|log.Lshortfile)
	errTimeLog   = log.New(ErrWriter, errPrefix, log.LstdFlags|log.Llongfile)
	critTimeLog  = log.New(CritWriter, critPrefix, log.LstdFlags|log.Llongfile)
)

// SetLevel discards writers below lvl, cascading the same way systemd
// journal priorities do: selecting "warn" silences notice/info/debug too.
func SetLevel(lvl string) {
	switch lvl {
	case "crit":
		ErrWriter = io.Discard
		fallthrough
	case "err", "fatal":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "notice":
		NoteWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug":
		// nothing discarded
	default:
		fmt.Printf("bridgelog: invalid loglevel %q, using 'info'\n", lvl)
		SetLevel("info")
	}
}

func SetLogDateTime(v bool) { logDateTime = v }

// tag formats a component prefix like "[NT4:10.0.1.5:5810/roboRIO] ".
func tag(component string) string {
	if component == "" {
		return ""
	}
	return "[" + component + "] "
}

func out(w io.Writer, plain, timed *log.Logger, component string, v ...interface{}) {
	if w == io.Discard {
		return
	}
	msg := tag(component) + fmt.Sprint(v...)
	if logDateTime {
		timed.Output(3, msg)
	} else {
		plain.Output(3, msg)
	}
}

func outf(w io.Writer, plain, timed *log.Logger, component, format string, v ...interface{}) {
	if w == io.Discard {
		return
	}
	msg := tag(component) + fmt.Sprintf(format, v...)
	if logDateTime {
		timed.Output(3, msg)
	} else {
		plain.Output(3, msg)
	}
}

func Debug(component string, v ...interface{}) { out(DebugWriter, debugLog, debugTimeLog, component, v...) }
func Info(component string, v ...interface{})  { out(InfoWriter, infoLog, infoTimeLog, component, v...) }
func Note(component string, v ...interface{})  { out(NoteWriter, noteLog, noteTimeLog, component, v...) }
func Warn(component string, v ...interface{})  { out(WarnWriter, warnLog, warnTimeLog, component, v...) }
func Error(component string, v ...interface{}) { out(ErrWriter, errLog, errTimeLog, component, v...) }
func Crit(component string, v ...interface{})  { out(CritWriter, critLog, critTimeLog, component, v...) }

func Debugf(component, format string, v ...interface{}) {
	outf(DebugWriter, debugLog, debugTimeLog, component, format, v...)
}
func Infof(component, format string, v ...interface{}) {
	outf(InfoWriter, infoLog, infoTimeLog, component, format, v...)
}
func Notef(component, format string, v ...interface{}) {
	outf(NoteWriter, noteLog, noteTimeLog, component, format, v...)
}
func Warnf(component, format string, v ...interface{}) {
	outf(WarnWriter, warnLog, warnTimeLog, component, format, v...)
}
func Errorf(component, format string, v ...interface{}) {
	outf(ErrWriter, errLog, errTimeLog, component, format, v...)
}
func Critf(component, format string, v ...interface{}) {
	outf(CritWriter, critLog, critTimeLog, component, format, v...)
}

// Fatal logs at error level and exits the process.
func Fatal(component string, v ...interface{}) {
	Error(component, v...)
	os.Exit(1)
}

func Fatalf(component, format string, v ...interface{}) {
	Errorf(component, format, v...)
	os.Exit(1)
}

// Panic logs at error level and panics. Used for invariant violations
// that should never occur if upstream callers honor their contracts.
func Panic(component string, v ...interface{}) {
	Error(component, v...)
	panic(fmt.Sprint(v...))
}
