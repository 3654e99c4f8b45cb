package schedule

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteLP serializes m into CPLEX LP format, the "standard MIP
// description" spec.md §4.6's solve contract hands to the solver. LP is
// chosen over MPS because it is plain text and trivially round-trips
// through [ParseLP] for the idempotence property in spec.md §8
// ("Build the MIP, serialize to file, re-parse: identical coefficient
// matrix and objective vector").
func WriteLP(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)

	if m.Maximize {
		fmt.Fprintln(bw, "Maximize")
	} else {
		fmt.Fprintln(bw, "Minimize")
	}
	fmt.Fprint(bw, " obj: ")
	writeTerms(bw, m.Objective)
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "Subject To")
	for _, c := range m.Constraints {
		fmt.Fprintf(bw, " %s: ", c.Name)
		writeTerms(bw, c.Terms)
		fmt.Fprintf(bw, " %s %s\n", c.Sense, formatCoef(c.RHS))
	}

	var binaries, continuous []Variable
	for _, v := range m.Variables {
		if v.Kind == Binary {
			binaries = append(binaries, v)
		} else {
			continuous = append(continuous, v)
		}
	}

	if len(continuous) > 0 {
		fmt.Fprintln(bw, "Bounds")
		for _, v := range continuous {
			fmt.Fprintf(bw, " %s <= %s <= %s\n", formatCoef(v.LB), v.Name, formatCoef(v.UB))
		}
	}

	if len(binaries) > 0 {
		fmt.Fprintln(bw, "Binaries")
		for _, v := range binaries {
			fmt.Fprintf(bw, " %s\n", v.Name)
		}
	}

	fmt.Fprintln(bw, "End")
	return bw.Flush()
}

func writeTerms(w io.Writer, terms []Term) {
	if len(terms) == 0 {
		fmt.Fprint(w, "0")
		return
	}
	for i, t := range terms {
		sign := "+"
		coef := t.Coef
		if coef < 0 {
			sign = "-"
			coef = -coef
		}
		if i == 0 && sign == "+" {
			fmt.Fprintf(w, "%s %s", formatCoef(coef), t.Var)
		} else {
			fmt.Fprintf(w, " %s %s %s", sign, formatCoef(coef), t.Var)
		}
	}
}

func formatCoef(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ParseLP reads back a model written by WriteLP. It is intentionally
// narrow: it understands exactly the subset of LP syntax WriteLP emits,
// which is all the round-trip property in spec.md §8 requires.
func ParseLP(r io.Reader) (*Model, error) {
	m := &Model{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	section := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "Maximize":
			m.Maximize = true
			section = "obj"
			continue
		case "Minimize":
			m.Maximize = false
			section = "obj"
			continue
		case "Subject To":
			section = "cons"
			continue
		case "Bounds":
			section = "bounds"
			continue
		case "Binaries":
			section = "bin"
			continue
		case "End":
			section = ""
			continue
		}

		switch section {
		case "obj":
			terms, _, err := parseTermsLine(strings.TrimPrefix(line, "obj: "))
			if err != nil {
				return nil, fmt.Errorf("parse objective: %w", err)
			}
			m.Objective = terms
		case "cons":
			name, rest, ok := strings.Cut(line, ":")
			if !ok {
				return nil, fmt.Errorf("malformed constraint line: %q", line)
			}
			sense, rhs, terms, err := parseConstraintRHS(rest)
			if err != nil {
				return nil, fmt.Errorf("parse constraint %q: %w", name, err)
			}
			m.Constraints = append(m.Constraints, Constraint{Name: strings.TrimSpace(name), Terms: terms, Sense: sense, RHS: rhs})
		case "bounds":
			v, lb, ub, err := parseBoundsLine(line)
			if err != nil {
				return nil, fmt.Errorf("parse bounds: %w", err)
			}
			m.Variables = append(m.Variables, Variable{Name: v, Kind: Continuous, LB: lb, UB: ub})
		case "bin":
			m.Variables = append(m.Variables, Variable{Name: line, Kind: Binary, LB: 0, UB: 1})
		}
	}
	return m, scanner.Err()
}

func parseTermsLine(s string) ([]Term, string, error) {
	fields := strings.Fields(s)
	if len(fields) == 1 && fields[0] == "0" {
		// writeTerms emits a lone "0" for an empty term list.
		return nil, "", nil
	}
	var terms []Term
	sign := 1.0
	i := 0
	for i < len(fields) {
		switch fields[i] {
		case "+":
			sign = 1
			i++
			continue
		case "-":
			sign = -1
			i++
			continue
		}
		if i+1 >= len(fields) {
			return nil, "", fmt.Errorf("dangling coefficient at field %d in %q", i, s)
		}
		coef, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, "", err
		}
		terms = append(terms, Term{Coef: sign * coef, Var: fields[i+1]})
		sign = 1
		i += 2
	}
	return terms, "", nil
}

func parseConstraintRHS(s string) (Sense, float64, []Term, error) {
	for _, sense := range []Sense{LE, GE, EQ} {
		if idx := strings.Index(s, string(sense)); idx >= 0 {
			terms, _, err := parseTermsLine(strings.TrimSpace(s[:idx]))
			if err != nil {
				return "", 0, nil, err
			}
			rhs, err := strconv.ParseFloat(strings.TrimSpace(s[idx+len(sense):]), 64)
			if err != nil {
				return "", 0, nil, err
			}
			return sense, rhs, terms, nil
		}
	}
	return "", 0, nil, fmt.Errorf("no relational operator found in %q", s)
}

func parseBoundsLine(line string) (name string, lb, ub float64, err error) {
	fields := strings.Fields(line)
	if len(fields) != 5 || fields[1] != "<=" || fields[3] != "<=" {
		return "", 0, 0, fmt.Errorf("malformed bounds line: %q", line)
	}
	lb, err = strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return "", 0, 0, err
	}
	ub, err = strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return "", 0, 0, err
	}
	return fields[2], lb, ub, nil
}

// Solution maps a solved variable name to its value, the "list of
// (variable_name, value) pairs" spec.md §6 names as the solver's output
// format.
type Solution map[string]float64

// ParseSolution reads a solver solution file of "name value" lines (one
// pair per line, whitespace-separated; blank lines and lines starting
// with '#' are ignored as comments most solvers emit in their headers).
func ParseSolution(r io.Reader) (Solution, error) {
	sol := make(Solution)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse solution value %q: %w", line, err)
		}
		name := strings.Join(fields[:len(fields)-1], " ")
		sol[name] = v
	}
	return sol, scanner.Err()
}
