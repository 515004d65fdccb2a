package reporting

import (
	"fmt"
	"strings"

	"solana-security-token/internal/vesting"
)

// RenderCSV renders release points as CSV string.
func RenderCSV(points []vesting.ReleasePoint) string {
	var sb strings.Builder

	// Header
	sb.WriteString("index,timestamp,released,unlocked,locked\n")

	// Rows
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%d,%d,%d,%d,%d\n",
			p.Index,
			p.Timestamp,
			p.Released,
			p.Unlocked,
			p.Locked,
		))
	}

	return sb.String()
}
