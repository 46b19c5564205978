package models

// Invocation describes one external process launch. It belongs to a single
// request and is never reused.
type Invocation struct {
	ID      string   `json:"id"`
	Program string   `json:"program"`
	Args    []string `json:"args"`
	Dir     string   `json:"dir"`
	Env     []string `json:"-"`
}
