package task

import (
	"sort"
	"strings"

	"github.com/rpggio/apontador/internal/teamwork"
)

// Flatten walks the task tree depth first. With inherit set, every task
// also carries the tags accumulated along its ancestor chain.
func Flatten(raw []teamwork.Task, inherit bool) []Descriptor {
	var out []Descriptor
	for _, t := range raw {
		out = collect(t, "", nil, inherit, out)
	}
	return out
}

func collect(t teamwork.Task, parentID string, parentTags []string, inherit bool, out []Descriptor) []Descriptor {
	tags := append([]string{}, t.Tags...)
	if inherit {
		for _, pt := range parentTags {
			if !contains(tags, pt) {
				tags = append(tags, pt)
			}
		}
	}
	if parentID == "" {
		parentID = t.ParentID
	}
	out = append(out, Descriptor{ID: t.ID, Name: t.Name, Tags: tags, ParentID: parentID})
	for _, sub := range t.SubTasks {
		out = collect(sub, t.ID, tags, inherit, out)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// FilterByTag keeps tasks carrying tag, compared case-insensitively. An
// empty tag keeps everything.
func FilterByTag(tasks []Descriptor, tag string) []Descriptor {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return tasks
	}
	var out []Descriptor
	for _, t := range tasks {
		for _, tg := range t.Tags {
			if strings.ToLower(tg) == tag {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// Dedup drops tasks without an id and keeps the first task seen per id.
func Dedup(tasks []Descriptor) []Descriptor {
	seen := make(map[string]struct{}, len(tasks))
	out := make([]Descriptor, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			continue
		}
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SortByName orders tasks by lowercased name, keeping input order on ties.
func SortByName(tasks []Descriptor) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return strings.ToLower(tasks[i].Name) < strings.ToLower(tasks[j].Name)
	})
}
