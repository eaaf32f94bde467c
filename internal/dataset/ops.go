package dataset

import "sort"

// Group is one partition produced by Groups.
type Group struct {
	Key  string
	Rows []int
}

// KeyCount is one bucket produced by Counts.
type KeyCount struct {
	Key   string
	Count int
}

// Filter keeps the rows whose value in column is one of values. Column set
// and relative row order are preserved. An empty values set keeps nothing;
// callers decide whether "no selection" means "no filter".
func (t *Table) Filter(column string, values []string) (*Table, error) {
	c, err := t.typed(column, KindText)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]struct{}, len(values))
	for _, v := range values {
		keep[v] = struct{}{}
	}

	rows := make([]int, 0, t.rows)
	for i, v := range c.Text {
		if _, ok := keep[v]; ok {
			rows = append(rows, i)
		}
	}
	return t.take(rows), nil
}

// Groups partitions the table by a text column. Groups are emitted with keys
// sorted ascending; rows with a missing key are dropped.
func (t *Table) Groups(key string) ([]Group, error) {
	c, err := t.typed(key, KindText)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]*Group)
	for i, v := range c.Text {
		if v == "" {
			continue
		}
		g, ok := byKey[v]
		if !ok {
			g = &Group{Key: v}
			byKey[v] = g
		}
		g.Rows = append(g.Rows, i)
	}

	groups := make([]Group, 0, len(byKey))
	for _, g := range byKey {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Key < groups[j].Key
	})
	return groups, nil
}

// Counts returns the number of rows per key in order of first appearance.
func (t *Table) Counts(key string) ([]KeyCount, error) {
	c, err := t.typed(key, KindText)
	if err != nil {
		return nil, err
	}

	pos := make(map[string]int)
	var out []KeyCount
	for _, v := range c.Text {
		if v == "" {
			continue
		}
		i, ok := pos[v]
		if !ok {
			i = len(out)
			pos[v] = i
			out = append(out, KeyCount{Key: v})
		}
		out[i].Count++
	}
	return out, nil
}

// Distinct returns the distinct non-missing values of a text column in order
// of first appearance.
func (t *Table) Distinct(column string) ([]string, error) {
	counts, err := t.Counts(column)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(counts))
	for i, kc := range counts {
		out[i] = kc.Key
	}
	return out, nil
}
