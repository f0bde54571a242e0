/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package romutil

import (
	"io"
	"os"
	"strings"
)

// A Mouth is how the VM produces output for the `print` built-in. It never
// returns an error, which is technically wrong but true enough for the use
// cases that matter here (stdout and in-memory buffers for testing).
type Mouth interface {
	// Say buffers s for output.
	Say(s string)

	// Flush outputs everything buffered by Say so far.
	Flush()
}

// NewWriterMouth creates a Mouth that flushes to w.
func NewWriterMouth(w io.Writer) Mouth {
	return &writerMouth{w: w}
}

type writerMouth struct {
	w       io.Writer
	buffer  strings.Builder
	hasData bool
}

func (wm *writerMouth) Say(s string) {
	wm.buffer.WriteString(s)
	wm.hasData = true
}

func (wm *writerMouth) Flush() {
	if !wm.hasData {
		return
	}
	s := wm.buffer.String()
	wm.buffer.Reset()
	_, _ = wm.w.Write([]byte(s))
	wm.hasData = false
}

// MemoryMouth is a Mouth that keeps all output in memory, one entry per
// Flush. Used by tests to assert on what a script printed.
type MemoryMouth struct {
	Outputs []string
	buffer  strings.Builder
	hasData bool
}

func (mm *MemoryMouth) Say(s string) {
	mm.buffer.WriteString(s)
	mm.hasData = true
}

func (mm *MemoryMouth) Flush() {
	if !mm.hasData {
		return
	}
	s := mm.buffer.String()
	mm.buffer.Reset()
	mm.Outputs = append(mm.Outputs, s)
	mm.hasData = false
}

// StdMouth returns a Mouth that writes to the standard output.
func StdMouth() Mouth {
	return NewWriterMouth(os.Stdout)
}
