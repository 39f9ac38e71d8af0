package rule

import (
	"strconv"
	"strings"
)

// Format renders tree in canonical rule syntax. Parse(Format(t)) is
// structurally equal to t for every parsed tree t.
func Format(tree Node) string {
	var sb strings.Builder
	writeNode(&sb, tree)
	return sb.String()
}

func writeNode(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Operator:
		sb.WriteString(string(n.Kind))
		sb.WriteByte('(')
		for i, arg := range n.Args {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeNode(sb, arg)
		}
		sb.WriteByte(')')
	case *Condition:
		sb.WriteByte('?')
		sb.WriteString(FormatCondition(n))
		sb.WriteByte('?')
	case *Raw:
		sb.WriteByte('?')
		sb.WriteString(n.Text)
		sb.WriteByte('?')
	}
}

// FormatCondition renders a condition without the surrounding '?'.
func FormatCondition(c *Condition) string {
	return c.Path() + " " + string(c.Op) + " " + FormatValue(c.Value)
}

// FormatValue renders a literal in its surface form.
func FormatValue(v Value) string {
	switch v := v.(type) {
	case StringValue:
		return quote(v.Text)
	case NumberValue:
		return formatNumber(v.Num)
	case RangeValue:
		return "/" + formatNumber(v.Low) + "," + formatNumber(v.High) + "/"
	case StringListValue:
		items := make([]string, len(v.Items))
		for i, s := range v.Items {
			items[i] = quote(s)
		}
		return "[" + strings.Join(items, ",") + "]"
	case NumberListValue:
		items := make([]string, len(v.Items))
		for i, n := range v.Items {
			items[i] = formatNumber(n)
		}
		return "[" + strings.Join(items, ",") + "]"
	case DateTimeValue:
		parts := make([]string, len(v.Parts))
		for i, p := range v.Parts {
			if p.Any {
				parts[i] = "*"
			} else {
				parts[i] = strconv.Itoa(p.N)
			}
		}
		return "(" + strings.Join(parts, ",") + ")"
	case TimeDeltaValue:
		parts := make([]string, len(v.Parts))
		for i, n := range v.Parts {
			parts[i] = strconv.Itoa(n)
		}
		return "{" + strings.Join(parts, ",") + "}"
	case BoolValue:
		if v.B {
			return "TRUE"
		}
		return "FALSE"
	case WildcardValue:
		return "*"
	}
	return ""
}

func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	return sb.String()
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
