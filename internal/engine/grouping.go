package engine

import (
	"strings"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
)

// keySeparator joins the core description and the flow in a group key.
const keySeparator = "|"

// CoreDescription reduces a note to the merchant part used for grouping.
// "美团-村上一屋 (导入)" becomes "美团"; an empty note becomes "其他交易".
func CoreDescription(note string) string {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(note), strings.TrimSpace(model.ImportedSuffix)))
	if cleaned == "" {
		return model.UnspecifiedDescription
	}

	if head, _, found := strings.Cut(cleaned, "-"); found {
		if head = strings.TrimSpace(head); head != "" {
			return head
		}
	}
	return cleaned
}

// GroupKey identifies the classification group a record belongs to. Records of
// opposite flows never share a key.
func GroupKey(r *model.Record) string {
	return CoreDescription(r.Note) + keySeparator + string(r.Flow)
}

// Group is a set of records classified together.
type Group struct {
	Representative *model.Record
	Key            string
	Members        []*model.Record
}

// Groups is an ordered collection of groups, in first-seen key order.
type Groups struct {
	byKey map[string]*Group
	order []string
}

// GroupRecords partitions records by GroupKey. The first record of each group
// is its representative.
func GroupRecords(records []*model.Record) *Groups {
	g := &Groups{byKey: make(map[string]*Group)}
	for _, r := range records {
		if r == nil {
			continue
		}
		key := GroupKey(r)
		group, ok := g.byKey[key]
		if !ok {
			group = &Group{Key: key, Representative: r}
			g.byKey[key] = group
			g.order = append(g.order, key)
		}
		group.Members = append(group.Members, r)
	}
	return g
}

// Keys returns the group keys in first-seen order.
func (g *Groups) Keys() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Get returns the group for key.
func (g *Groups) Get(key string) (*Group, bool) {
	group, ok := g.byKey[key]
	return group, ok
}

// Members returns the records of the group for key, or nil.
func (g *Groups) Members(key string) []*model.Record {
	if group, ok := g.byKey[key]; ok {
		return group.Members
	}
	return nil
}

// Len returns the number of groups.
func (g *Groups) Len() int {
	return len(g.order)
}

// RecordCount returns the number of records across all groups.
func (g *Groups) RecordCount() int {
	n := 0
	for _, group := range g.byKey {
		n += len(group.Members)
	}
	return n
}
