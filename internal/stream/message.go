package stream

import (
	"sort"
	"time"

	"github.com/rickgao/skyblock-data/internal/aggregate"
)

// Message types.
const (
	TypeFlush      = "flush"
	TypeSubscribed = "subscribed"
)

// ItemPrice is one summarised key.
type ItemPrice struct {
	ItemID      string  `json:"item_id"`
	Rarity      string  `json:"rarity"`
	Mean        float64 `json:"mean"`
	Count       int     `json:"count"`
	Occurrences int     `json:"occurrences,omitempty"`
}

// Message is the JSON frame sent to clients.
type Message struct {
	Type      string      `json:"type"`
	Series    string      `json:"series,omitempty"`
	At        time.Time   `json:"at,omitempty"`
	Snapshots int         `json:"snapshots,omitempty"`
	Items     []ItemPrice `json:"items,omitempty"`
}

// Command is a client request.
type Command struct {
	Command string   `json:"command"`
	Items   []string `json:"items"`
}

// FromFlush converts ev to a flush message with items in key order.
func FromFlush(ev aggregate.FlushEvent) Message {
	items := make([]ItemPrice, 0, len(ev.Summaries))
	for key, s := range ev.Summaries {
		items = append(items, ItemPrice{
			ItemID:      key.ItemID,
			Rarity:      key.Rarity.String(),
			Mean:        s.Mean,
			Count:       s.Count,
			Occurrences: ev.Occurrences[key],
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].ItemID != items[j].ItemID {
			return items[i].ItemID < items[j].ItemID
		}
		return items[i].Rarity < items[j].Rarity
	})

	return Message{
		Type:      TypeFlush,
		Series:    string(ev.Kind.Summary()),
		At:        ev.At.UTC(),
		Snapshots: ev.Snapshots,
		Items:     items,
	}
}

// filter returns m restricted to ids, and false when nothing is left. A nil
// set keeps every item.
func (m Message) filter(ids map[string]struct{}) (Message, bool) {
	if ids == nil {
		return m, true
	}
	kept := make([]ItemPrice, 0, len(ids))
	for _, it := range m.Items {
		if _, ok := ids[it.ItemID]; ok {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		return Message{}, false
	}
	m.Items = kept
	return m, true
}
