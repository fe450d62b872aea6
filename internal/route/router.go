// Package route maps the classified regulation flags onto one of five
// named processing paths. All paths converge on the same anonymizer; the
// path only decides which regulation's strategy table governs.
package route

import "github.com/veilhq/veil/internal/entity"

// Path names a regulation-specific justification route.
type Path string

const (
	PathGDPR       Path = "gdpr_path"
	PathHIPAA      Path = "hipaa_path"
	PathPCI        Path = "pci_path"
	PathPCIGDPR    Path = "pci_gdpr_path"
	PathEscalation Path = "escalation_path"
)

// Decide selects a processing path from the set of flagged regulations.
// An empty set escalates (no regulation detected means a human should
// look), which still processes under GDPR defaults.
func Decide(flags map[entity.Regulation]bool) Path {
	switch {
	case flags[entity.PCIDSS] && flags[entity.GDPR]:
		return PathPCIGDPR
	case flags[entity.PCIDSS]:
		return PathPCI
	case flags[entity.HIPAA]:
		return PathHIPAA
	case flags[entity.GDPR]:
		return PathGDPR
	case len(flags) == 0:
		return PathEscalation
	default:
		return PathGDPR
	}
}
