package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/a2ui/internal/action"
	"github.com/yolodolo42/a2ui/internal/datamodel"
	"github.com/yolodolo42/a2ui/internal/outbound"
	"github.com/yolodolo42/a2ui/internal/protocol"
	"github.com/yolodolo42/a2ui/internal/render"
	"github.com/yolodolo42/a2ui/internal/surface"
	"github.com/yolodolo42/a2ui/internal/ui"
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE...",
	Short: "Apply message streams and print the resulting surfaces",
	Long: `Replay reads JSONL message streams (use - for stdin), applies them to a
fresh session and prints every surface.

Inputs are applied after all streams, then actions are fired in order:

  a2ui replay form.jsonl --input s1:email=a@b.com --fire s1:submit

Targets are written surface:component, with @scope for template rows
(s1:done@/todos/2). Without --send, resolved actions are printed as JSON.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().String("message-id", "", "Message id for every stream (default: file name)")
	replayCmd.Flags().StringArray("input", nil, "Binding write surface:component[@scope]=value (repeatable)")
	replayCmd.Flags().StringArray("fire", nil, "Fire the action on surface:component[@scope] (repeatable)")
	replayCmd.Flags().Bool("send", false, "Deliver fired actions over the configured transport")
	replayCmd.Flags().Int("width", 80, "Render width")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	messageID, _ := cmd.Flags().GetString("message-id")
	inputs, _ := cmd.Flags().GetStringArray("input")
	fires, _ := cmd.Flags().GetStringArray("fire")
	send, _ := cmd.Flags().GetBool("send")
	width, _ := cmd.Flags().GetInt("width")

	e, err := openEngine(loadSettings(), send)
	if err != nil {
		return err
	}
	defer e.Close()

	for _, path := range args {
		id := messageID
		if id == "" {
			id = streamName(path)
		}
		if err := consumeFile(ctx, e, path, id, errOut); err != nil {
			return err
		}
	}

	for _, arg := range inputs {
		if err := applyInput(e, arg); err != nil {
			return err
		}
	}

	for _, arg := range fires {
		t, err := parseTarget(arg)
		if err != nil {
			return err
		}
		res, ok, err := e.Fire(ctx, t)
		if err != nil {
			return fmt.Errorf("fire %s: %w", arg, err)
		}
		if !ok {
			fmt.Fprintln(errOut, ui.WarningStyle.Render("no action for "+arg))
			continue
		}
		if res.Sent {
			fmt.Fprintf(errOut, "%s %s sent (run %s, %d reply messages)\n",
				ui.SuccessStyle.Render(ui.SymbolCheck), res.Action.Name, res.RunID, res.Reply.Applied)
			continue
		}
		env := outbound.Envelope{ThreadID: e.Channel().ThreadID(), RunID: res.RunID, UserAction: res.Action}
		b, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
	}

	printSurfaces(out, e.Registry(), width)
	return nil
}

func streamName(path string) string {
	if path == "-" {
		return "stdin"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func consumeFile(ctx context.Context, e *engine, path, messageID string, errOut io.Writer) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open stream: %w", err)
		}
		defer f.Close()
		r = f
	}
	st, err := e.Consume(ctx, messageID, r)
	if err != nil {
		return fmt.Errorf("consume %s: %w", path, err)
	}
	if st.Malformed > 0 || st.Rejected > 0 {
		fmt.Fprintln(errOut, ui.WarningStyle.Render(fmt.Sprintf("%s: %d applied, %d malformed, %d rejected",
			path, st.Applied, st.Malformed, st.Rejected)))
	}
	return nil
}

// parseTarget reads surface:component[@scope].
func parseTarget(arg string) (action.Trigger, error) {
	surfaceID, rest, ok := strings.Cut(arg, ":")
	if !ok || surfaceID == "" || rest == "" {
		return action.Trigger{}, fmt.Errorf("invalid target %q: want surface:component[@scope]", arg)
	}
	componentID, scope, _ := strings.Cut(rest, "@")
	if componentID == "" {
		return action.Trigger{}, fmt.Errorf("invalid target %q: empty component id", arg)
	}
	return action.Trigger{SurfaceID: surfaceID, ComponentID: componentID, Scope: scope}, nil
}

func applyInput(e *engine, arg string) error {
	target, raw, ok := strings.Cut(arg, "=")
	if !ok {
		return fmt.Errorf("invalid input %q: want surface:component=value", arg)
	}
	t, err := parseTarget(target)
	if err != nil {
		return err
	}
	node, ok := e.Registry().Component(t.SurfaceID, t.ComponentID)
	if !ok {
		return fmt.Errorf("input %s: %w", target, surface.ErrSurfaceNotFound)
	}
	v, err := inputValue(node.Component.Kind(), raw)
	if err != nil {
		return fmt.Errorf("input %s: %w", target, err)
	}
	return e.Input(t, v)
}

// inputValue converts typed text into the value a component of kind binds.
func inputValue(kind protocol.Kind, raw string) (datamodel.Value, error) {
	switch kind {
	case protocol.KindCheckBox:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return datamodel.Value{}, fmt.Errorf("checkbox value must be true or false")
		}
		return datamodel.Bool(b), nil
	case protocol.KindSlider:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return datamodel.Value{}, fmt.Errorf("slider value must be a number")
		}
		return datamodel.Number(n), nil
	default:
		return datamodel.String(raw), nil
	}
}

func printSurfaces(w io.Writer, reg *surface.Registry, width int) {
	p := &render.Painter{Catalog: render.Terminal(), Width: width}
	for _, id := range reg.List() {
		s, _ := reg.Get(id)
		header := ui.SymbolBullet + " " + id
		if s != nil && s.OriginMessageID != "" {
			header += ui.SelectorDim.Render("  (" + s.OriginMessageID + ")")
		}
		fmt.Fprintln(w, ui.TitleStyle.Render(header))

		f, ok := p.Paint(reg, id, "")
		if !ok {
			fmt.Fprintln(w, ui.PendingStyle.Render("  waiting for beginRendering"))
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintln(w, f.Text)
		if len(f.Pending) > 0 {
			fmt.Fprintln(w, ui.PendingStyle.Render("  pending: "+strings.Join(f.Pending, ", ")))
		}
		fmt.Fprintln(w)
	}
}
