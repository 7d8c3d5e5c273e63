package helpdesk

// KBArticle is a knowledge-base entry describing a known problem and its fix.
// Articles are static seed data, read-only at runtime.
type KBArticle struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Application string   `json:"application"`
	Problem     string   `json:"problem"`
	Cause       string   `json:"cause"`
	Solution    string   `json:"solution"`
	Steps       []string `json:"steps"`
}
