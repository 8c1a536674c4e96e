package history

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Dispatcher applies one raw inbound message under its chat message id.
type Dispatcher interface {
	DispatchRaw(ctx context.Context, messageID string, raw []byte) error
}

// ReplayStats counts what a replay did.
type ReplayStats struct {
	Inbound int
	Actions int
	Failed  int
}

// Read loads every record of a session log. Unparseable lines are skipped.
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

// Replay re-applies the inbound messages of a session log in order, under
// their original message ids. Logged actions are counted, not re-sent.
func Replay(ctx context.Context, path string, d Dispatcher) (ReplayStats, error) {
	var st ReplayStats
	recs, err := Read(path)
	if err != nil {
		return st, err
	}
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		switch rec.Type {
		case TypeInbound:
			if err := d.DispatchRaw(ctx, rec.MessageID, rec.Envelope); err != nil {
				st.Failed++
				continue
			}
			st.Inbound++
		case TypeAction:
			st.Actions++
		}
	}
	return st, nil
}
