package accuracy

import (
	"fmt"
	"strings"

	"github.com/OCAP2/combatbot/internal/weapon"
	"github.com/OCAP2/combatbot/internal/zone"
)

// maxRatioSlack is how far actual damage may exceed potential damage
// before the table flags the record as inconsistent.
const maxRatioSlack = 1e-5

// Table renders the percentage of potential damage dealt with id at each
// zone center, with the seconds of data behind each cell. The second
// return value reports whether any cell dealt more than its potential.
func (l *Ledger) Table(id weapon.ID) (string, bool) {
	id = id.Clamp()
	p := l.defaults.Catalog().Get(id)

	var b strings.Builder
	fmt.Fprintf(&b, "%s accuracy: near, mid, far, veryfar\n", p.Name)

	overflow := false
	for pitch := zone.NumPitch - 1; pitch >= 0; pitch-- {
		fmt.Fprintf(&b, " %5s:", zone.PitchName(pitch))
		for dist := 0; dist < zone.NumDist; dist++ {
			acc := l.cells[id][dist][pitch]
			actual := acc.Damage()
			potential := acc.Shots * p.Damage

			if potential > 0 {
				if actual/potential > 1+maxRatioSlack {
					overflow = true
				}
				fmt.Fprintf(&b, " %3.0f%%", 100*actual/potential)
			} else {
				b.WriteString("  ??%")
			}
			fmt.Fprintf(&b, " (%3.2f)", acc.Time)
			if dist < zone.NumDist-1 {
				b.WriteString(",")
			}
		}
		b.WriteString("\n")
	}
	return b.String(), overflow
}

// FireTable renders the percentage of potential fire time actually spent
// firing id at each zone center.
func (l *Ledger) FireTable(id weapon.ID) string {
	id = id.Clamp()

	var b strings.Builder
	fmt.Fprintf(&b, "%s firing: near, mid, far, veryfar\n", l.defaults.Catalog().Get(id).Name)

	for pitch := zone.NumPitch - 1; pitch >= 0; pitch-- {
		fmt.Fprintf(&b, " %5s:", zone.PitchName(pitch))
		for dist := 0; dist < zone.NumDist; dist++ {
			acc := l.cells[id][dist][pitch]
			if acc.AttackRate.Potential > 0 {
				fmt.Fprintf(&b, " %3.0f%%", 100*acc.AttackRatio())
			} else {
				b.WriteString("  ??%")
			}
			fmt.Fprintf(&b, " (%3.2f)", acc.AttackRate.Potential)
			if dist < zone.NumDist-1 {
				b.WriteString(",")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
