package builder

import (
	"strings"

	"github.com/distribution/reference"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/zerr"
)

// ArtifactKey maps a container image reference to the key of its artifact entry:
// artifacts:<registry>:<repository>:<tag or algorithm-digest>.
// A digest wins over a tag; an image without either is tagged "latest".
func ArtifactKey(image string) (domain.Key, error) {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return domain.Key{}, zerr.With(zerr.Wrap(err, "invalid image reference"), "image", image)
	}

	var version string
	switch r := named.(type) {
	case reference.Digested:
		version = r.Digest().Algorithm().String() + "-" + r.Digest().Encoded()
	case reference.Tagged:
		version = r.Tag()
	default:
		version = reference.TagNameOnly(named).(reference.Tagged).Tag()
	}

	return domain.Key{
		Type: domain.TypeArtifacts,
		// Registry ports would otherwise collide with the key separator.
		Account: strings.ReplaceAll(reference.Domain(named), domain.KeySeparator, "_"),
		Region:  reference.Path(named),
		Name:    version,
	}, nil
}
