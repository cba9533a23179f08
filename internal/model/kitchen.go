package model

import (
	"sort"
	"time"

	"github.com/nexpos/engine/internal/enum"
)

// KOTGroup is one kitchen ticket: the items of a single order that were
// dispatched together under one KOT number.
type KOTGroup struct {
	KOTID     string     `json:"kot_id"`
	OrderID   string     `json:"order_id"`
	TableName string     `json:"table_name"`
	SentAt    time.Time  `json:"sent_at"`
	Items     []CartItem `json:"items"`
}

// AllReady reports whether every item on the ticket has reached READY
// or beyond. A mixed ticket is not ready.
func (g KOTGroup) AllReady() bool {
	for _, it := range g.Items {
		if it.Status != enum.ItemStatusReady && it.Status != enum.ItemStatusServed {
			return false
		}
	}
	return len(g.Items) > 0
}

// KOTGroups splits an order's dispatched items into tickets by KOT id,
// oldest first. Tickets whose items are all SERVED are omitted; they
// are done from the kitchen's point of view.
func KOTGroups(o *Order) []KOTGroup {
	byID := make(map[string]*KOTGroup)
	for _, it := range o.Items {
		if it.KOTID == "" {
			continue
		}
		g, ok := byID[it.KOTID]
		if !ok {
			g = &KOTGroup{
				KOTID:     it.KOTID,
				OrderID:   o.ID,
				TableName: o.TableName,
				SentAt:    it.SentAt,
			}
			byID[it.KOTID] = g
		}
		if it.SentAt.Before(g.SentAt) {
			g.SentAt = it.SentAt
		}
		g.Items = append(g.Items, it)
	}

	groups := make([]KOTGroup, 0, len(byID))
	for _, g := range byID {
		served := true
		for _, it := range g.Items {
			if it.Status != enum.ItemStatusServed {
				served = false
				break
			}
		}
		if served {
			continue
		}
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].SentAt.Equal(groups[j].SentAt) {
			return groups[i].KOTID < groups[j].KOTID
		}
		return groups[i].SentAt.Before(groups[j].SentAt)
	})
	return groups
}
