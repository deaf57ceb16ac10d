package inference

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DefaultSystemPrompt instructs the model to answer with a JSON array keyed by local id.
const DefaultSystemPrompt = `You are a concise NBA play-by-play analyst. For every moment you are given, ` +
	`write one or two sentences explaining why it matters. Respond only with a JSON array of ` +
	`objects shaped {"id": "<id>", "text": "<explanation>"} using the ids provided.`

type promptMoment struct {
	ID     string          `json:"id"`
	Kind   string          `json:"kind"`
	Moment json.RawMessage `json:"moment"`
}

// batchPrompt is a deterministic rendering of a batch. Items are ordered by
// content so identical batches share a prompt, fingerprint and local ids.
type batchPrompt struct {
	text     string
	localIDs []string // localIDs[i] answers items[i]
}

func buildPrompt(items []Item) batchPrompt {
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := items[order[a]], items[order[b]]
		if ia.Kind != ib.Kind {
			return ia.Kind < ib.Kind
		}
		return ia.Payload < ib.Payload
	})

	localIDs := make([]string, len(items))
	moments := make([]promptMoment, 0, len(items))
	for n, idx := range order {
		local := fmt.Sprintf("m%d", n+1)
		localIDs[idx] = local
		moments = append(moments, promptMoment{ID: local, Kind: items[idx].Kind, Moment: rawPayload(items[idx].Payload)})
	}
	body, _ := json.Marshal(moments)

	var sb strings.Builder
	sb.WriteString("Moments:\n")
	sb.Write(body)
	return batchPrompt{text: sb.String(), localIDs: localIDs}
}

func rawPayload(payload string) json.RawMessage {
	if json.Valid([]byte(payload)) {
		return json.RawMessage(payload)
	}
	quoted, _ := json.Marshal(payload)
	return quoted
}

// Fingerprint identifies a batch by its system prompt and item contents, independent of
// correlation ids and submission order.
func Fingerprint(system string, items []Item) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.Kind + "\x00" + it.Payload
	}
	sort.Strings(parts)

	h := sha256.New()
	h.Write([]byte(system))
	for _, p := range parts {
		h.Write([]byte{'\n'})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
