package channel

import "strings"

// DefaultSource is the provider tag assumed when a caller omits one.
const DefaultSource = "claude"

// Channel is a credentialed upstream endpoint as supplied by the channel store.
type Channel struct {
	ID      string `json:"id" mapstructure:"id"`
	Name    string `json:"name" mapstructure:"name"`
	Source  string `json:"source,omitempty" mapstructure:"source"`
	BaseURL string `json:"base_url" mapstructure:"base_url"`
	APIKey  string `json:"-" mapstructure:"api_key"`
}

// Key returns the identity of the channel.
func (c Channel) Key() Key {
	return NewKey(c.Source, c.ID)
}

// Key identifies a channel across sources.
type Key struct {
	Source string
	ID     string
}

// NewKey builds a Key, substituting DefaultSource for an empty source.
func NewKey(source, id string) Key {
	return Key{Source: NormalizeSource(source), ID: id}
}

// NormalizeSource maps an empty source to DefaultSource.
func NormalizeSource(source string) string {
	if source == "" {
		return DefaultSource
	}
	return source
}

func (k Key) String() string {
	return k.Source + ":" + k.ID
}

// ParseKey is the inverse of Key.String. Channel ids may contain ':'.
func ParseKey(s string) (Key, bool) {
	source, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return Key{}, false
	}
	return NewKey(source, id), true
}
