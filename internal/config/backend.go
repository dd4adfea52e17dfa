package config

import (
	"fmt"
	"strings"
)

const (
	G2PLexicon       = "lexicon"
	G2PPhonetisaurus = "phonetisaurus"
)

func NormalizeG2PBackend(raw string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(raw))
	if backend == "" {
		backend = G2PLexicon
	}
	switch backend {
	case G2PLexicon, G2PPhonetisaurus:
		return backend, nil
	case "dict", "dictionary":
		return G2PLexicon, nil
	case "fst":
		return G2PPhonetisaurus, nil
	default:
		return "", fmt.Errorf(
			"invalid g2p backend %q (expected %s|%s)",
			raw,
			G2PLexicon,
			G2PPhonetisaurus,
		)
	}
}
