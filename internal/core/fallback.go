package core

import "fmt"

// FallbackBiography synthesizes generic biography markup for a display name.
// It is served, and cached, whenever the text generator is unconfigured or
// fails, so repeat lookups for the same name return identical filler.
func FallbackBiography(displayName string) string {
	return fmt.Sprintf(`<p style="margin-bottom: 1rem">
<strong>%[1]s</strong> is a notable personality whose contributions have made a significant impact in their field.
</p>
<p style="margin-bottom: 1rem">
Throughout their career, <strong>%[1]s</strong> has been recognized for their dedication, expertise, and influence.
Their work continues to inspire and shape the understanding of their contemporaries and future generations.
</p>
<p style="margin-bottom: 1rem">
Known for their remarkable achievements, <strong>%[1]s</strong> has left an indelible mark through their contributions,
demonstrating excellence and commitment to their craft.
</p>
<p style="margin-bottom: 0">
The legacy of <strong>%[1]s</strong> continues to be celebrated and studied, serving as an inspiration for those
who follow in their footsteps.
</p>`, displayName)
}
