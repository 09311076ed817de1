// internal/report/printer.go
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/tamzrod/modbus-rtubench/internal/bench"
	"github.com/tamzrod/modbus-rtubench/internal/config"
)

// Printer renders session progress and the final summary for an operator.
// It implements bench.Observer.
type Printer struct {
	out     io.Writer
	verbose bool
	st      styles
}

var _ bench.Observer = (*Printer)(nil)

// NewPrinter writes to out. Verbose enables per-device and per-cycle lines.
func NewPrinter(out io.Writer, verbose bool) *Printer {
	return &Printer{
		out:     out,
		verbose: verbose,
		st:      newStyles(lipgloss.NewRenderer(out)),
	}
}

// ---- session start ----

// Banner prints the resolved session as YAML, loadable again with --config.
func (p *Printer) Banner(cfg *config.Config) error {
	raw, err := yaml.Marshal(newSessionView(cfg))
	if err != nil {
		return fmt.Errorf("report: encode session: %w", err)
	}

	fmt.Fprintln(p.out, p.st.title.Render("Modbus RTU benchmark"))
	fmt.Fprint(p.out, string(raw))
	return nil
}

// PortCheck reports the outcome of opening the serial port.
func (p *Printer) PortCheck(port string, err error) {
	fmt.Fprintf(p.out, "Checking port %s... ", port)
	if err != nil {
		fmt.Fprintln(p.out, p.st.err.Render("failed")+" (choose another port with -D): "+err.Error())
		return
	}
	fmt.Fprintln(p.out, p.st.ok.Render("ok"))
}

// Polling announces the first cycle.
func (p *Printer) Polling() {
	fmt.Fprintln(p.out, "Polling devices...")
}

// ---- bench.Observer ----

// DevicePolled prints failures always and successes in verbose mode.
func (p *Printer) DevicePolled(d bench.DeviceResult) {
	if d.Err != nil {
		msg := fmt.Sprintf("read error: device %d register %d: %v", d.Device, d.Register, d.Err)
		if code := errorCode(d.Err); code != 0 {
			msg += fmt.Sprintf(" (exception %d)", code)
		}
		fmt.Fprintln(p.out, p.st.err.Render(msg))
		return
	}
	if !p.verbose {
		return
	}

	last := "-"
	if n := len(d.Values); n > 0 {
		last = strconv.Itoa(int(d.Values[n-1]))
	}
	fmt.Fprintf(p.out, "bucket %d (%d): device %d last value %s, request %d ms\n",
		d.Bucket, d.BucketCount, d.Device, last, d.LatencyMs)
}

// CycleDone prints the per-cycle average in verbose mode.
func (p *Printer) CycleDone(c bench.CycleResult) {
	if !p.verbose {
		return
	}
	fmt.Fprintf(p.out, "cycle %d of %d, instant average request speed: %s ms\n\n",
		c.Index+1, c.Total, formatMs(c.AvgSpeedMs))
}

// ---- session end ----

// Summary prints the reduced report.
func (p *Printer) Summary(rep bench.Report) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.st.muted.Render("steady buckets: "+formatBuckets(rep.Steady)))

	p.line("Avg request, ALL registers, ms:", formatMs(rep.AvgRequestMs))
	p.line("One register, ms:", formatMs(rep.AvgRegisterMs))
	p.line("One poll of ALL devices, ms:", formatMs(rep.AvgCycleMs))

	if rep.TotalErrors > 0 {
		fmt.Fprintln(p.out, p.st.label.Render("Total errors:")+p.st.warn.Render(strconv.Itoa(rep.TotalErrors)))
	} else {
		p.line("Total errors:", "0")
	}

	if d := rep.Latency; d != nil {
		p.line("Device-cycle ms min/median/p95/max:", fmt.Sprintf("%s / %s / %s / %s (n=%d)",
			formatMs(d.Min), formatMs(d.Median), formatMs(d.P95), formatMs(d.Max), d.Samples))
	}
}

// InsufficientData explains why no report was produced.
func (p *Printer) InsufficientData(err error) {
	fmt.Fprintln(p.out, p.st.err.Render("Not enough data to measure speed, increase the number of cycles (-c)"))
	if err != nil {
		fmt.Fprintln(p.out, p.st.muted.Render(err.Error()))
	}
}

func (p *Printer) line(label, value string) {
	fmt.Fprintln(p.out, p.st.label.Render(label)+p.st.value.Render(value))
}

// ---- helpers ----

// sessionView is the YAML shape of a session; keys match the config file.
type sessionView struct {
	Serial struct {
		Port     string `yaml:"port"`
		BaudRate int    `yaml:"baud_rate"`
		DataBits int    `yaml:"bytesize"`
		Parity   string `yaml:"parity"`
		StopBits int    `yaml:"stop_bits"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"serial"`
	Devices   []int  `yaml:"devices,flow"`
	Registers []int  `yaml:"registers,flow"`
	Cycles    int    `yaml:"cycles"`
	Bucket    string `yaml:"bucket"`
}

func newSessionView(cfg *config.Config) sessionView {
	var v sessionView

	v.Serial.Port = cfg.Serial.Port
	v.Serial.BaudRate = cfg.Serial.BaudRate
	v.Serial.DataBits = cfg.Serial.DataBits
	v.Serial.Parity = cfg.Serial.Parity
	v.Serial.StopBits = cfg.Serial.StopBits
	v.Serial.Timeout = cfg.Serial.Timeout.String()

	for _, d := range cfg.Devices {
		v.Devices = append(v.Devices, int(d))
	}
	for _, r := range cfg.Registers {
		v.Registers = append(v.Registers, int(r))
	}

	v.Cycles = cfg.Cycles
	v.Bucket = cfg.Bucket.String()
	return v
}

func formatMs(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBuckets(bs []bench.Bucket) string {
	parts := make([]string, 0, len(bs))
	for _, b := range bs {
		parts = append(parts, fmt.Sprintf("%d: %d", b.Key, b.Count))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// errorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// If the error does not expose a code, returns 0.
func errorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}

	return 0
}
