package discord

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

// PermissionChecker gates privileged commands on an analyst role.
type PermissionChecker struct {
	analystRoleID string
}

// NewPermissionChecker creates a checker. An empty analystRoleID allows
// everyone.
func NewPermissionChecker(analystRoleID string) *PermissionChecker {
	return &PermissionChecker{analystRoleID: analystRoleID}
}

// IsAnalyst reports whether the interaction's member carries the analyst
// role. Interactions without a member (DMs) are never analysts unless the
// role gate is disabled.
func (p *PermissionChecker) IsAnalyst(i *discordgo.InteractionCreate) bool {
	if p.analystRoleID == "" {
		return true
	}
	if i.Member == nil {
		return false
	}
	return slices.Contains(i.Member.Roles, p.analystRoleID)
}

// IsDM reports whether the interaction came from a direct message
// (no guild member attached).
func IsDM(i *discordgo.InteractionCreate) bool {
	return i.Member == nil
}
