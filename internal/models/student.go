package models

// Student is a roster entry of a group.
type Student struct {
	ID       string `db:"id" json:"id"`
	GroupID  string `db:"group_id" json:"group_id"`
	FullName string `db:"full_name" json:"full_name"`
}

// Group identifies a class group.
type Group struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
