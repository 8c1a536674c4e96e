package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/a2ui/internal/protocol"
	"github.com/yolodolo42/a2ui/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check message streams against the envelope schema",
	Long: `Validate reads JSONL message streams (use - for stdin) and reports every
line that fails schema validation or decoding. Nothing is applied.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// validateReport counts the lines of one stream.
type validateReport struct {
	Lines   int
	Valid   int
	Invalid int
}

func runValidate(cmd *cobra.Command, args []string) error {
	v, err := protocol.NewValidator()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	bad := 0
	for _, path := range args {
		r, closeFn, err := openStream(path)
		if err != nil {
			return err
		}
		rep, err := validateStream(v, path, r, out)
		closeFn()
		if err != nil {
			return err
		}
		bad += rep.Invalid
		fmt.Fprintf(out, "%s: %d valid, %d invalid\n", path, rep.Valid, rep.Invalid)
	}
	if bad > 0 {
		return fmt.Errorf("%d invalid messages", bad)
	}
	fmt.Fprintln(out, ui.SuccessStyle.Render(ui.SymbolCheck+" all messages valid"))
	return nil
}

func openStream(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open stream: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// validateStream checks each non-blank line with both the schema and the
// decoder and writes one line per failure.
func validateStream(v *protocol.Validator, name string, r io.Reader, w io.Writer) (validateReport, error) {
	var rep validateReport
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		rep.Lines++
		raw := []byte(line)
		err := v.Validate(raw)
		if err == nil {
			_, err = protocol.Decode(raw)
		}
		if err != nil {
			rep.Invalid++
			fmt.Fprintf(w, "%s %s line %d: %v\n", ui.ErrorStyle.Render(ui.SymbolCross), name, n, err)
			continue
		}
		rep.Valid++
	}
	if err := sc.Err(); err != nil {
		return rep, fmt.Errorf("read %s: %w", name, err)
	}
	return rep, nil
}
