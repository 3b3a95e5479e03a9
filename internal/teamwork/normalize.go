package teamwork

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Field-name synonyms seen across Teamwork API versions and tenants.
var (
	taskListKeys    = []string{"tasks", "todo-items"}
	taskNameKeys    = []string{"content", "name"}
	taskIDKeys      = []string{"id", "id_str", "taskId"}
	taskParentKeys  = []string{"parentTaskId", "parent-task-id"}
	subTaskKeys     = []string{"subTasks", "subtasks"}
	peopleListKeys  = []string{"people", "persons", "users"}
	personIDKeys    = []string{"id", "userId"}
	projectListKeys = []string{"projects"}
	entryListKeys   = []string{"time-entries", "timeEntries"}
)

// Project is a normalized project summary.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Company     string `json:"company,omitempty"`
	Category    string `json:"category,omitempty"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
}

// Task is a normalized task as returned by the API, subtasks still nested.
type Task struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Tags     []string `json:"tags"`
	ParentID string   `json:"parent_id,omitempty"`
	SubTasks []Task   `json:"sub_tasks,omitempty"`
}

// Person is a normalized project member.
type Person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TimeEntry is an existing time entry read back from the API.
type TimeEntry struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Minutes     int    `json:"minutes"`
	Date        string `json:"date"`
}

const unnamedPerson = "Sem nome"

func listOf(obj map[string]any, keys []string) []map[string]any {
	for _, k := range keys {
		raw, ok := obj[k].([]any)
		if !ok || len(raw) == 0 {
			continue
		}
		out := make([]map[string]any, 0, len(raw))
		for _, item := range raw {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func stringOf(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := scalar(obj[k]); s != "" {
			return s
		}
	}
	return ""
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	}
	return ""
}

func nestedName(obj map[string]any, key string) string {
	if m, ok := obj[key].(map[string]any); ok {
		return stringOf(m, "name")
	}
	return ""
}

func normalizeProject(m map[string]any) Project {
	return Project{
		ID:          stringOf(m, "id"),
		Name:        stringOf(m, "name"),
		Company:     nestedName(m, "company"),
		Category:    nestedName(m, "category"),
		Status:      stringOf(m, "status"),
		Description: stringOf(m, "description"),
	}
}

func normalizeTask(m map[string]any) Task {
	t := Task{
		ID:       stringOf(m, taskIDKeys...),
		Name:     stringOf(m, taskNameKeys...),
		Tags:     tagNames(m["tags"]),
		ParentID: stringOf(m, taskParentKeys...),
	}
	if t.ParentID == "0" {
		t.ParentID = ""
	}
	for _, sub := range listOf(m, subTaskKeys) {
		t.SubTasks = append(t.SubTasks, normalizeTask(sub))
	}
	return t
}

// tagNames accepts tags as objects with a name or as plain strings.
func tagNames(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		var name string
		switch t := item.(type) {
		case map[string]any:
			name = stringOf(t, "name")
		case string:
			name = strings.TrimSpace(t)
		}
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func normalizePerson(m map[string]any) (Person, bool) {
	u := m
	if inner, ok := m["user"].(map[string]any); ok {
		u = inner
	}
	name := stringOf(u, "name")
	if name == "" {
		name = strings.TrimSpace(stringOf(u, "first-name") + " " + stringOf(u, "last-name"))
	}
	if name == "" {
		name = stringOf(u, "full-name", "email-address")
	}
	if name == "" {
		name = unnamedPerson
	}
	id := stringOf(u, personIDKeys...)
	if id == "" {
		id = stringOf(m, "id")
	}
	if id == "" {
		return Person{}, false
	}
	return Person{ID: id, Name: name}, true
}

func normalizeEntry(m map[string]any) TimeEntry {
	e := TimeEntry{
		ID:          stringOf(m, "id"),
		Description: stringOf(m, "description"),
		Date:        stringOf(m, "date"),
	}
	hours, _ := strconv.Atoi(stringOf(m, "hours"))
	minutes, _ := strconv.Atoi(stringOf(m, "minutes"))
	e.Minutes = hours*60 + minutes
	return e
}
