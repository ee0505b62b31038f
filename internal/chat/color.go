package chat

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	apperrors "github.com/Mynotaurus/gostreaming/internal/errors"
)

// colorNames is the sorted SVG 1.1 palette, used for "random" picks.
var colorNames = func() []string {
	names := make([]string, 0, len(colornames.Map))
	for name := range colornames.Map {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}()

// ResolveColor turns a user-supplied token into a 24-bit RGB value.
// Accepted forms: a named color, the literal "random", or a 3- or
// 6-digit hex triplet with an optional leading '#'. Matching is
// case-insensitive.
func ResolveColor(input string) (int, error) {
	token := strings.ToLower(strings.TrimSpace(input))
	if token == "" {
		return 0, apperrors.ValidationError("No color specified")
	}

	if token == "random" {
		token = colorNames[rand.Intn(len(colorNames))]
	}

	if c, ok := colornames.Map[token]; ok {
		return int(c.R)<<16 | int(c.G)<<8 | int(c.B), nil
	}

	hex := strings.TrimPrefix(token, "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return 0, apperrors.ValidationError(fmt.Sprintf("Invalid color '%s'", input))
	}

	value, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, apperrors.ValidationError(fmt.Sprintf("Invalid color '%s'", input))
	}
	return int(value), nil
}

// HTMLColor renders a 24-bit RGB value as "#rrggbb".
func HTMLColor(color int) string {
	return fmt.Sprintf("#%06x", color)
}
