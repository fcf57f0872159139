package content

import (
	"fmt"
	"net/url"
)

const placeholderAvatarBase = "https://api.dicebear.com/7.x/identicon/svg"

// PlaceholderAvatarURL derives a stable avatar URL for a profile without an
// uploaded avatar. Derivation is deterministic in the seed so repeated
// resolutions render the same image.
func PlaceholderAvatarURL(seed string) string {
	if seed == "" {
		seed = "anonymous"
	}
	return fmt.Sprintf("%s?seed=%s", placeholderAvatarBase, url.QueryEscape(seed))
}
