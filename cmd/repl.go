package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sweepq/internal/analysis"
	"github.com/KaramelBytes/sweepq/internal/sweep"
)

var replCmd = &cobra.Command{
	Use:   "repl <csv>",
	Short: "Interactive query loop over a loaded export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := loadIndex(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %d series.\n", ix.Len())
		runRepl(ix, newAnalyzer(ix), os.Stdin)
		return nil
	},
}

func replHelp() {
	fmt.Println("Commands:")
	fmt.Println("  list [--limit N]")
	fmt.Println(`  show (--index I | --params "k1=v1,k2=v2") [--sample N]`)
	fmt.Println(`  query (--index I | --params "k1=v1,k2=v2") --x VALUE`)
	fmt.Println(`  error (--index I | --params "k1=v1,k2=v2")`)
	fmt.Println("  min-error [--percentage]")
	fmt.Println("  threshold --threshold V [--percentage] [--operator <=] [--limit N] [--verbose]")
	fmt.Println("  param-search --name NAME --value V [--tolerance T] [--verbose]")
	fmt.Println("  compare --a SEL --b SEL")
	fmt.Println("  help, exit, quit")
}

// runRepl reads commands from in until exit/quit or EOF. Command errors are
// printed and never end the loop.
func runRepl(ix *sweep.Index, a *analysis.Analyzer, in io.Reader) {
	fmt.Println("Interactive mode.")
	replHelp()
	sc := bufio.NewScanner(in)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch line {
		case "exit", "quit":
			return
		case "help":
			replHelp()
			continue
		}
		argv, err := splitArgs(line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		if err := replDispatch(ix, a, argv); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func replDispatch(ix *sweep.Index, a *analysis.Analyzer, argv []string) error {
	ra, err := parseReplArgs(argv[1:])
	if err != nil {
		return err
	}
	switch argv[0] {
	case "list":
		limit, err := ra.integer("limit", 0)
		if err != nil {
			return err
		}
		return runList(ix, limit)
	case "show":
		sel, err := ra.selector()
		if err != nil {
			return err
		}
		sample, err := ra.integer("sample", 10)
		if err != nil {
			return err
		}
		return runShow(ix, sel, sample)
	case "query":
		sel, err := ra.selector()
		if err != nil {
			return err
		}
		if !ra.has("x") {
			return fmt.Errorf("--x is required")
		}
		x, err := ra.float("x", 0)
		if err != nil {
			return err
		}
		return runQuery(ix, sel, x)
	case "error":
		sel, err := ra.selector()
		if err != nil {
			return err
		}
		return runError(a, sel)
	case "min-error":
		return runMinError(a, ra.boolean("percentage"))
	case "threshold":
		if !ra.has("threshold") {
			return fmt.Errorf("--threshold is required")
		}
		threshold, err := ra.float("threshold", 0)
		if err != nil {
			return err
		}
		operator := ra.str("operator")
		if operator == "" {
			operator = "<="
		}
		limit, err := ra.integer("limit", 0)
		if err != nil {
			return err
		}
		return runThreshold(a, threshold, ra.boolean("percentage"), operator, limit, ra.boolean("verbose"))
	case "param-search":
		name := ra.str("name")
		if name == "" {
			return fmt.Errorf("--name is required")
		}
		if !ra.has("value") {
			return fmt.Errorf("--value is required")
		}
		value, err := ra.float("value", 0)
		if err != nil {
			return err
		}
		tolerance, err := ra.float("tolerance", 1e-10)
		if err != nil {
			return err
		}
		return runParamSearch(a, name, value, tolerance, ra.boolean("verbose"))
	case "compare":
		if !ra.has("a") || !ra.has("b") {
			return fmt.Errorf("both --a and --b are required")
		}
		aSel, err := parseSelector(ra.str("a"))
		if err != nil {
			return fmt.Errorf("selector a: %w", err)
		}
		bSel, err := parseSelector(ra.str("b"))
		if err != nil {
			return fmt.Errorf("selector b: %w", err)
		}
		return runCompare(ix, a, aSel, bSel)
	default:
		return fmt.Errorf("unknown command %q, type 'help' for options", argv[0])
	}
}

// splitArgs splits an interactive line into arguments, honoring single and
// double quotes.
func splitArgs(line string) ([]string, error) {
	var args []string
	var cur strings.Builder
	var quote byte
	inToken := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inToken = true
		case c == ' ' || c == '\t':
			if inToken {
				args = append(args, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteByte(c)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inToken {
		args = append(args, cur.String())
	}
	return args, nil
}

// replArgs is a tiny flag reader for interactive lines. Boolean flags are
// recognized by name; everything else consumes the next token as its value.
type replArgs struct {
	m map[string]string
}

func parseReplArgs(argv []string) (*replArgs, error) {
	ra := &replArgs{m: map[string]string{}}
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if !strings.HasPrefix(arg, "--") {
			return nil, fmt.Errorf("unexpected argument %q", arg)
		}
		name := strings.TrimPrefix(arg, "--")
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			ra.m[name[:eq]] = name[eq+1:]
			continue
		}
		switch name {
		case "percentage", "verbose":
			ra.m[name] = "true"
			continue
		}
		if i+1 >= len(argv) {
			return nil, fmt.Errorf("flag --%s needs a value", name)
		}
		i++
		ra.m[name] = argv[i]
	}
	return ra, nil
}

func (ra *replArgs) has(name string) bool {
	_, ok := ra.m[name]
	return ok
}

func (ra *replArgs) str(name string) string { return ra.m[name] }

func (ra *replArgs) boolean(name string) bool { return ra.m[name] == "true" }

func (ra *replArgs) integer(name string, def int) (int, error) {
	v, ok := ra.m[name]
	if !ok {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("flag --%s: invalid integer %q", name, v)
	}
	return i, nil
}

func (ra *replArgs) float(name string, def float64) (float64, error) {
	v, ok := ra.m[name]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("flag --%s: invalid number %q", name, v)
	}
	return f, nil
}

func (ra *replArgs) selector() (sweep.Selector, error) {
	index, err := ra.integer("index", 0)
	if err != nil {
		return sweep.Selector{}, err
	}
	return buildSelector(ra.has("index"), index, ra.str("params"))
}

func init() {
	rootCmd.AddCommand(replCmd)
}
