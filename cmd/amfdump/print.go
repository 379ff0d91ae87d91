package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/limscoder/amfast/pkg/amf"
)

// printValue renders a decoded value as an indented tree.
func printValue(out io.Writer, v any, depth int) {
	pad := strings.Repeat("  ", depth)
	switch t := v.(type) {
	case nil:
		fmt.Fprintf(out, "%snull\n", pad)
	case amf.Undefined:
		fmt.Fprintf(out, "%sundefined\n", pad)
	case string:
		fmt.Fprintf(out, "%s%q\n", pad, t)
	case time.Time:
		fmt.Fprintf(out, "%sdate %s\n", pad, t.Format(time.RFC3339Nano))
	case []any:
		fmt.Fprintf(out, "%sarray[%d]\n", pad, len(t))
		for _, item := range t {
			printValue(out, item, depth+1)
		}
	case *amf.Array:
		fmt.Fprintf(out, "%smixed-array dense=%d assoc=%d\n", pad, len(t.Dense), len(t.Assoc))
		for _, item := range t.Dense {
			printValue(out, item, depth+1)
		}
		printAttrs(out, t.Assoc, depth+1)
	case map[string]any:
		fmt.Fprintf(out, "%sobject\n", pad)
		printAttrs(out, t, depth+1)
	case *amf.Object:
		alias := ""
		if t.ClassDef != nil {
			alias = t.ClassDef.Alias
		}
		fmt.Fprintf(out, "%sobject alias=%q\n", pad, alias)
		if t.ClassDef != nil {
			for i, name := range t.ClassDef.StaticAttrs {
				if i < len(t.Static) {
					fmt.Fprintf(out, "%s  %s:\n", pad, name)
					printValue(out, t.Static[i], depth+2)
				}
			}
		}
		printAttrs(out, t.Dynamic, depth+1)
	case *amf.ByteArray:
		fmt.Fprintf(out, "%sbytearray[%d] %s\n", pad, len(t.Data), preview(t.Data))
	case *amf.XMLDoc:
		fmt.Fprintf(out, "%sxml-doc %q\n", pad, t.Data)
	case *amf.XML:
		fmt.Fprintf(out, "%sxml %q\n", pad, t.Data)
	default:
		fmt.Fprintf(out, "%s%v\n", pad, t)
	}
}

func printAttrs(out io.Writer, attrs map[string]any, depth int) {
	pad := strings.Repeat("  ", depth)
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%s%s:\n", pad, k)
		printValue(out, attrs[k], depth+1)
	}
}

func preview(data []byte) string {
	const max = 16
	n := len(data)
	if n > max {
		n = max
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%02x", data[i])
	}
	if len(data) > max {
		b.WriteString("...")
	}
	return b.String()
}
