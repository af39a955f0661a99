package utils

import (
	"github.com/bwmarrin/discordgo"
)

// HasBetBoyRole reports whether the interaction member carries the betting
// management role.
func HasBetBoyRole(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	guildRoles, err := s.GuildRoles(i.GuildID)
	if err != nil {
		BotLogf("PERMS", "failed to fetch guild roles: %v", err)
		return false
	}
	roleNames := make(map[string]string, len(guildRoles))
	for _, role := range guildRoles {
		roleNames[role.ID] = role.Name
	}
	for _, roleID := range i.Member.Roles {
		if roleNames[roleID] == BetBoyRole {
			return true
		}
	}
	return false
}

// HasManageServer reports whether the interaction member has the Manage
// Server permission.
func HasManageServer(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionManageServer != 0
}
