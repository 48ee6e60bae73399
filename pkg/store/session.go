package store

// TitleState tracks what we know about a session's title without
// hitting the database. A session whose title is customized never
// needs another auto-title attempt.
type TitleState struct {
	SessionID  string `json:"session_id"`
	Customized bool   `json:"customized"`
}
