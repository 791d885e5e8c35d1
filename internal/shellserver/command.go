package shellserver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// The server never hands received text to an interpreter. Each payload is
// parsed into this closed command vocabulary and routed into the Pipeline;
// anything that does not parse is a command failure, reported through the
// acknowledgment channel when acknowledgments are on.

var (
	ErrMalformedCommand = errors.New("shellserver: malformed command")
	ErrUnknownCommand   = errors.New("shellserver: unknown command")
)

// Exec parses and executes one command payload. A payload may carry several
// newline-chained statements (register writes do); they execute in order and
// the first failure aborts the rest.
func Exec(p Pipeline, payload string) error {
	for _, raw := range strings.Split(payload, "\n") {
		stmt := strings.TrimSpace(raw)
		if stmt == "" {
			continue
		}
		if err := execStatement(p, stmt); err != nil {
			return err
		}
	}
	return nil
}

func execStatement(p Pipeline, stmt string) error {
	open := strings.Index(stmt, "(")
	if open < 0 || !strings.HasSuffix(stmt, ")") {
		return fmt.Errorf("%w: %q", ErrMalformedCommand, stmt)
	}
	callee := stmt[:open]
	args, kwargs, err := parseArgs(stmt[open+1 : len(stmt)-1])
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrMalformedCommand, stmt, err)
	}

	switch callee {
	case "bfrt.batch_begin":
		return p.BatchBegin()
	case "bfrt.batch_end":
		return p.BatchEnd()
	}

	target, method, ok := splitCallee(callee)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, stmt)
	}

	switch {
	case strings.HasPrefix(method, "add_with_"):
		return p.TableAdd(target, strings.TrimPrefix(method, "add_with_"), args)
	case strings.HasPrefix(method, "mod_with_"):
		return p.TableModify(target, strings.TrimPrefix(method, "mod_with_"), args)
	case strings.HasPrefix(method, "set_default_with_"):
		return p.TableSetDefault(target, strings.TrimPrefix(method, "set_default_with_"), args)
	case method == "delete":
		return p.TableDelete(target, args)
	case method == "clear":
		batch, err := parseBoolKwarg(kwargs, "batch")
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrMalformedCommand, stmt, err)
		}
		return p.TableClear(target, batch)
	case method == "mod":
		if len(args) != 2 {
			return fmt.Errorf("%w: register mod takes (index, value)", ErrMalformedCommand)
		}
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: register index %q", ErrMalformedCommand, args[0])
		}
		return p.RegisterWrite(target, index, args[1])
	case method == "operation_register_sync":
		return p.RegisterSync(target)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, stmt)
	}
}

// splitCallee breaks "p4.<qualified.target>.<method>" apart.
func splitCallee(callee string) (target, method string, ok bool) {
	rest, found := strings.CutPrefix(callee, "p4.")
	if !found {
		return "", "", false
	}
	dot := strings.LastIndex(rest, ".")
	if dot <= 0 || dot == len(rest)-1 {
		return "", "", false
	}
	return rest[:dot], rest[dot+1:], true
}

// parseArgs scans a comma-separated argument list. Quoted tokens are
// unwrapped, bare tokens pass through, and name=value tokens become kwargs.
// Commas inside quotes do not split.
func parseArgs(s string) (args []string, kwargs map[string]string, err error) {
	kwargs = make(map[string]string)
	var tokens []string
	var b strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == ',' && !inQuote:
			tokens = append(tokens, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if inQuote {
		return nil, nil, errors.New("unterminated quote")
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}

	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if name, value, found := strings.Cut(tok, "="); found && !strings.HasPrefix(tok, `"`) {
			kwargs[strings.TrimSpace(name)] = strings.TrimSpace(value)
			continue
		}
		if strings.HasPrefix(tok, `"`) && strings.HasSuffix(tok, `"`) && len(tok) >= 2 {
			tok = tok[1 : len(tok)-1]
		}
		args = append(args, tok)
	}
	return args, kwargs, nil
}

func parseBoolKwarg(kwargs map[string]string, name string) (bool, error) {
	v, ok := kwargs[name]
	if !ok {
		return false, nil
	}
	// Python-flavored dialect booleans.
	switch v {
	case "True":
		return true, nil
	case "False":
		return false, nil
	default:
		return false, fmt.Errorf("bad boolean %q for %s", v, name)
	}
}
