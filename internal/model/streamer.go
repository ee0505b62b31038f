package model

// StreamerSettings is a row in the streamersettings table. The stream
// key and password never leave the server in JSON form.
type StreamerSettings struct {
	Username    string  `db:"username" json:"username"`
	Key         string  `db:"key" json:"-"`
	Description *string `db:"description" json:"description,omitempty"`
	StreamPass  *string `db:"streampass" json:"-"`
}

// HasPassword reports whether viewers must present a stream password.
func (s *StreamerSettings) HasPassword() bool {
	return s.StreamPass != nil && *s.StreamPass != ""
}

// Emote maps a chat alias to the image served for it.
type Emote struct {
	Alias string `db:"alias" json:"alias"`
	URI   string `db:"uri" json:"uri"`
}
