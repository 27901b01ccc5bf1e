package domain

import "cloud.google.com/go/civil"

// OpenTodos returns todos that are not completed, in collection order.
func OpenTodos(todos []Todo) []Todo {
	out := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if !t.Status.IsDone() {
			out = append(out, t)
		}
	}
	return out
}

// TodayOpenTodos returns open todos due on today.
func TodayOpenTodos(todos []Todo, today civil.Date) []Todo {
	out := []Todo{}
	for _, t := range OpenTodos(todos) {
		if t.DueDate != nil && *t.DueDate == today {
			out = append(out, t)
		}
	}
	return out
}

// OverdueCount counts open todos due before today.
func OverdueCount(todos []Todo, today civil.Date) int {
	n := 0
	for _, t := range OpenTodos(todos) {
		if t.DueDate != nil && t.DueDate.Before(today) {
			n++
		}
	}
	return n
}
