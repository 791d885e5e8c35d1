package shell

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pipectl/p4bridge/internal/bridge"
)

// The remote shell dialect. Every structured operation renders to one of
// these textual forms and travels as a single frame.
const (
	cmdBatchBegin = "bfrt.batch_begin()"
	cmdBatchEnd   = "bfrt.batch_end()"

	verbAdd    = "add"
	verbModify = "mod"
)

// rangeKey matches a two-endpoint range match key like "10..20".
var rangeKey = regexp.MustCompile(`^\d+\.\.\d+$`)

// encodeValue applies the dialect's value encoding: range match keys become
// two comma-separated quoted values, everything else is quoted as-is. The
// shell parses all scalars from quoted strings, including numerics.
func encodeValue(v string) string {
	if rangeKey.MatchString(v) {
		v = strings.Replace(v, "..", `", "`, 1)
	}
	return `"` + v + `"`
}

func encodeValues(vs []string) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = encodeValue(v)
	}
	return out
}

func renderTableWrite(verb, table, action string, keys, params []string) string {
	args := strings.Join(append(keys, params...), ", ")
	return fmt.Sprintf("p4.%s.%s_with_%s(%s)", table, verb, bridge.BareAction(action), args)
}

func renderTableSetDefault(table, action string, params []string) string {
	return fmt.Sprintf("p4.%s.set_default_with_%s(%s)", table, bridge.BareAction(action), strings.Join(params, ", "))
}

func renderTableDelete(table string, keys []string) string {
	return fmt.Sprintf("p4.%s.delete(%s)", table, strings.Join(keys, ", "))
}

func renderTableClear(table string, ownBatch bool) string {
	// The dialect is Python flavored, hence the capitalized booleans.
	b := "False"
	if ownBatch {
		b = "True"
	}
	return fmt.Sprintf("p4.%s.clear(batch=%s)", table, b)
}

// renderRegisterSet emits the write and the register synchronization as two
// chained statements in one payload: the sync must land before any
// subsequent read of the register.
func renderRegisterSet(register string, index int, value string) string {
	return fmt.Sprintf("p4.%s.mod(%d, %s)\np4.%s.operation_register_sync()", register, index, value, register)
}
