// Package render writes command results as json, yaml or table.
//
// Without --format, a terminal gets a table and anything else gets json.
// --no-color strips styling from tables only; json and yaml are never styled
// and the TUI keeps its own palette.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/boltstream/cli/tui"
)

// Format is an output format name.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

var formats = map[string]Format{
	"json":  FormatJSON,
	"table": FormatTable,
	"yaml":  FormatYAML,
}

// ParseFormat resolves a --format value case-insensitively. An empty string
// yields an empty Format so the caller can pick the TTY default.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return "", nil
	}
	if f, ok := formats[strings.ToLower(s)]; ok {
		return f, nil
	}
	return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
}

// Every key gets the same escape sequence, so tabwriter widths stay aligned.
var (
	keyStyle     = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

var timeType = reflect.TypeOf(time.Time{})

// Renderer writes values in one resolved format.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer builds a stdout renderer from --format and --no-color.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	return NewRendererTo(c, os.Stdout)
}

// NewRendererTo is NewRenderer for an arbitrary file; the TTY default is
// decided on out.
func NewRendererTo(c *cli.Context, out *os.File) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatJSON
		if isTTY(out) {
			format = FormatTable
		}
	}
	return NewRendererWithWriter(format, c.Bool("no-color"), out), nil
}

// NewRendererWithWriter builds a renderer with no flag or TTY lookup.
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{format: format, noColor: noColor, out: out}
}

// Format returns the resolved output format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render writes data in the renderer's format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		return r.table(reflect.ValueOf(data))
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// RenderTUI hands data to the interactive view registered for viewType.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	return tui.Run(viewType, data)
}

// section is a list-valued struct field deferred until after the key/value
// rows, since tabwriter cannot nest tables.
type section struct {
	name string
	rows reflect.Value
}

func (r *Renderer) table(v reflect.Value) error {
	v = deref(v)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return r.list(v)
	case reflect.Struct:
		w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
		var sections []section
		r.fields(w, v, &sections)
		if err := w.Flush(); err != nil {
			return err
		}
		for _, s := range sections {
			fmt.Fprintf(r.out, "\n%s\n", r.style(sectionStyle, s.name))
			if err := r.list(s.rows); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
		for _, k := range sortedMapKeys(v) {
			fmt.Fprintf(w, "%s\t%s\n", r.style(keyStyle, fmt.Sprint(k.Interface())+":"), cell(v.MapIndex(k)))
		}
		return w.Flush()
	case reflect.Invalid:
		return nil
	default:
		_, err := fmt.Fprintln(r.out, cell(v))
		return err
	}
}

// fields writes one key/value row per field, flattening embedded structs the
// way encoding/json does. Slices of structs become sections.
func (r *Renderer) fields(w io.Writer, v reflect.Value, sections *[]section) {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, skip := fieldName(f)
		if skip {
			continue
		}
		fv := v.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("json") == "" {
			r.fields(w, fv, sections)
			continue
		}
		if isRowList(fv) {
			*sections = append(*sections, section{name: name, rows: fv})
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", r.style(keyStyle, name+":"), cell(fv))
	}
}

// list writes a header row from the first element and one row per element.
func (r *Renderer) list(v reflect.Value) error {
	if v.Len() == 0 {
		_, err := fmt.Fprintln(r.out, "(no results)")
		return err
	}
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	first := deref(v.Index(0))
	switch first.Kind() {
	case reflect.Struct:
		cols := columns(first.Type())
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.name
		}
		fmt.Fprintln(w, strings.Join(names, "\t"))
		for i := range v.Len() {
			row := deref(v.Index(i))
			vals := make([]string, len(cols))
			for j, c := range cols {
				vals[j] = cell(row.FieldByIndex(c.index))
			}
			fmt.Fprintln(w, strings.Join(vals, "\t"))
		}
	case reflect.Map:
		keys := sortedMapKeys(first)
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = fmt.Sprint(k.Interface())
		}
		fmt.Fprintln(w, strings.Join(names, "\t"))
		for i := range v.Len() {
			row := deref(v.Index(i))
			vals := make([]string, len(keys))
			for j, k := range keys {
				vals[j] = cell(row.MapIndex(k))
			}
			fmt.Fprintln(w, strings.Join(vals, "\t"))
		}
	default:
		for i := range v.Len() {
			fmt.Fprintln(w, cell(v.Index(i)))
		}
	}
	return w.Flush()
}

type column struct {
	name  string
	index []int
}

// columns lists the exported fields of t, embedded structs flattened.
func columns(t reflect.Type) []column {
	var out []column
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, skip := fieldName(f)
		if skip {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("json") == "" {
			for _, c := range columns(f.Type) {
				out = append(out, column{name: c.name, index: append([]int{i}, c.index...)})
			}
			continue
		}
		out = append(out, column{name: name, index: []int{i}})
	}
	return out
}

// fieldName returns the json name of f, or skip for json:"-".
func fieldName(f reflect.StructField) (name string, skip bool) {
	tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch tag {
	case "-":
		return "", true
	case "":
		return strings.ToLower(f.Name), false
	}
	return tag, false
}

// cell formats a value for a single table cell. Small maps are spelled out
// as sorted k=v pairs; other composites are summarized.
func cell(v reflect.Value) string {
	v = deref(v)
	if !v.IsValid() {
		return ""
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		if v.Len() > 8 {
			return fmt.Sprintf("{%d keys}", v.Len())
		}
		pairs := make([]string, 0, v.Len())
		for _, k := range sortedMapKeys(v) {
			pairs = append(pairs, fmt.Sprintf("%v=%s", k.Interface(), cell(v.MapIndex(k))))
		}
		return strings.Join(pairs, " ")
	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface().(time.Time).Format(time.RFC3339)
		}
		return "{...}"
	default:
		return fmt.Sprint(v.Interface())
	}
}

// isRowList reports whether v is a slice whose elements render as table rows.
func isRowList(v reflect.Value) bool {
	if v.Kind() != reflect.Slice {
		return false
	}
	et := v.Type().Elem()
	if et.Kind() == reflect.Ptr {
		et = et.Elem()
	}
	return et.Kind() == reflect.Struct && et != timeType
}

// deref follows pointers and interfaces; nil yields the zero Value.
func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if r.noColor {
		return text
	}
	return s.Render(text)
}

func sortedMapKeys(v reflect.Value) []reflect.Value {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return keys
}

func isTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
