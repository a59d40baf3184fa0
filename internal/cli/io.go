package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// IO bundles the output streams a [Command] writes to, plus whether the
// caller asked for machine-readable JSON output (global --json flag).
type IO struct {
	out    io.Writer
	errOut io.Writer
	json   bool
}

// NewIO creates an IO writing to out/errOut in human-readable mode.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// JSON reports whether --json was passed.
func (o *IO) JSON() bool { return o.json }

// Println writes to stdout.
func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout.
func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// ErrPrintf writes formatted output to stderr.
func (o *IO) ErrPrintf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.errOut, format, a...)
}

// PrintJSON writes v to stdout as indented JSON, followed by a newline.
func (o *IO) PrintJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(o.out, string(data))

	return err
}

// jsonError is the shape of an error reported with --json (§6 CLI surface:
// `{ "error": "<kind>", "message": "...", "uuid": "..." }`).
type jsonError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	UUID    string `json:"uuid,omitempty"`
}

// PrintError reports err on stderr, as a JSON object when --json is set,
// plain text otherwise. uuid may be empty.
func (o *IO) PrintError(err error, uuid string) {
	if !o.json {
		o.ErrPrintln("error:", err)
		return
	}

	data, marshalErr := json.Marshal(jsonError{
		Error:   errorKind(err),
		Message: err.Error(),
		UUID:    uuid,
	})
	if marshalErr != nil {
		o.ErrPrintln("error:", err)
		return
	}

	o.ErrPrintln(string(data))
}
