package mission

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/iancoleman/orderedmap"
	"github.com/yuin/gopher-lua/parse"
)

// table is a Lua hash table whose keys keep insertion order, so the
// written mission is stable from run to run.
type table = orderedmap.OrderedMap

func newTable(kv ...any) *table {
	t := orderedmap.New()
	for i := 0; i+1 < len(kv); i += 2 {
		t.Set(kv[i].(string), kv[i+1])
	}
	return t
}

// writeAssignment writes "name = value" followed by a newline.
func writeAssignment(w io.Writer, name string, value any) error {
	var b strings.Builder
	b.WriteString(name)
	b.WriteString(" = ")
	if err := writeValue(&b, value, 0); err != nil {
		return err
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeValue(b *strings.Builder, v any, depth int) error {
	switch v := v.(type) {
	case nil:
		b.WriteString("nil")
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case int:
		b.WriteString(strconv.Itoa(v))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("mission: cannot encode %v", v)
		}
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	case string:
		b.WriteString(quoteLua(v))
	case []any:
		b.WriteString("{\n")
		for i, item := range v {
			indent(b, depth+1)
			fmt.Fprintf(b, "[%d] = ", i+1)
			if err := writeValue(b, item, depth+1); err != nil {
				return err
			}
			b.WriteString(",\n")
		}
		indent(b, depth)
		b.WriteString("}")
	case *table:
		b.WriteString("{\n")
		for _, k := range v.Keys() {
			item, _ := v.Get(k)
			indent(b, depth+1)
			b.WriteString("[")
			b.WriteString(quoteLua(k))
			b.WriteString("] = ")
			if err := writeValue(b, item, depth+1); err != nil {
				return err
			}
			b.WriteString(",\n")
		}
		indent(b, depth)
		b.WriteString("}")
	default:
		return fmt.Errorf("mission: unsupported Lua value %T", v)
	}
	return nil
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("    ")
	}
}

// quoteLua returns s as a double-quoted Lua 5.1 string literal.
func quoteLua(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\%03d`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// checkLua parses src and reports syntax errors.
func checkLua(name, src string) error {
	if _, err := parse.Parse(strings.NewReader(src), name); err != nil {
		return fmt.Errorf("mission: generated %s is not valid Lua: %w", name, err)
	}
	return nil
}
