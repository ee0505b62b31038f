package emote

import (
	"github.com/kyokomi/emoji/v2"
)

func init() {
	// Emoji are substituted inline; the default trailing pad space
	// would corrupt chat text.
	emoji.ReplacePadding = ""
}

// Transformer rewrites chat text before it is broadcast.
type Transformer func(text string) string

// Expand replaces :alias: tokens with their unicode emoji. Unknown
// aliases pass through untouched.
func Expand(text string) string {
	return emoji.Sprint(text)
}
