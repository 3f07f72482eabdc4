package models

type Tag struct {
	ID   string
	Name string
}
