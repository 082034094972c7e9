package model

// All lists every table owned by the store, in creation order.
func All() []any {
	return []any{
		&Admin{},
		&Employee{},
		&AttendanceLog{},
		&Feedback{},
		&SystemSettings{},
		&SystemLogEntry{},
	}
}
